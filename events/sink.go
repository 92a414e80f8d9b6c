package events

import "context"

// Sink is the telemetry-sink boundary: the data plane only knows how to
// hand a Record to a Sink, never how it is transported onward. Production
// deployments wire a gRPC or shared-memory sink; that transport is out of
// scope here (external collaborator, per spec.md §1), so this package
// ships only in-process reference implementations sufficient for tests
// and local operation, per SPEC_FULL §6.
type Sink interface {
	Emit(Record)
}

// Drain continuously pops records off every ring in rings and hands them
// to sink, until ctx is canceled. It is meant to run in its own goroutine,
// one per process, consuming all workers' rings — the single consumer
// spec.md §5's "consumers must drain continuously" describes.
func Drain(ctx context.Context, rings []*Ring, sink Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		drained := false
		for _, r := range rings {
			if rec, ok := r.Pop(); ok {
				sink.Emit(rec)
				drained = true
			}
		}
		if !drained {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}

// FanOut is a Sink that forwards every Record to each of its members, so
// the socket live stream and the zstd archive can both be wired to the
// same drain loop.
type FanOut []Sink

// Emit implements Sink by calling Emit on every member in order.
func (f FanOut) Emit(rec Record) {
	for _, s := range f {
		s.Emit(rec)
	}
}

// ChanSink is a Sink backed by a buffered channel, the simplest possible
// in-process reference implementation, directly modeled on the teacher's
// svrChan buffered-channel hand-off between collection and serving.
type ChanSink struct {
	C chan Record
}

// NewChanSink returns a ChanSink with the given channel capacity.
func NewChanSink(capacity int) *ChanSink {
	return &ChanSink{C: make(chan Record, capacity)}
}

// Emit implements Sink by a non-blocking send; a full channel drops the
// record, matching the silent-drop contract.
func (s *ChanSink) Emit(rec Record) {
	select {
	case s.C <- rec:
	default:
	}
}
