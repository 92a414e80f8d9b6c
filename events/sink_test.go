package events

import (
	"context"
	"testing"
	"time"
)

type recordingSink struct {
	records []Record
}

func (s *recordingSink) Emit(rec Record) {
	s.records = append(s.records, rec)
}

func TestFanOutForwardsToEveryMember(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	fo := FanOut{a, b}

	fo.Emit(Record{AttackType: "x"})

	if len(a.records) != 1 || a.records[0].AttackType != "x" {
		t.Fatalf("sink a got %+v, want one record with AttackType x", a.records)
	}
	if len(b.records) != 1 || b.records[0].AttackType != "x" {
		t.Fatalf("sink b got %+v, want one record with AttackType x", b.records)
	}
}

func TestChanSinkDropsOnFullChannel(t *testing.T) {
	s := NewChanSink(1)
	s.Emit(Record{AttackType: "first"})
	s.Emit(Record{AttackType: "second"}) // must not block

	rec := <-s.C
	if rec.AttackType != "first" {
		t.Fatalf("got %q, want \"first\" (second emit should have been dropped)", rec.AttackType)
	}
	select {
	case rec := <-s.C:
		t.Fatalf("unexpected second record delivered: %+v", rec)
	default:
	}
}

func TestDrainPopsEveryRingUntilCanceled(t *testing.T) {
	r1 := NewRing(4)
	r2 := NewRing(4)
	r1.Push(Record{AttackType: "from-r1"})
	r2.Push(Record{AttackType: "from-r2"})

	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Drain(ctx, []*Ring{r1, r2}, sink)
		close(done)
	}()

	// Give the drain loop a moment to pop both records, then cancel.
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	if len(sink.records) != 2 {
		t.Fatalf("sink got %d records, want 2", len(sink.records))
	}
}
