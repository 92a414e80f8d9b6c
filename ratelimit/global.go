package ratelimit

import (
	"sync"
	"time"
)

// Global holds the two fixed-index global token buckets (PPS and BPS)
// spec.md's global rate limiter stage consumes from. Unlike the per-worker
// tables, one Global is shared by every worker, so ConsumePPS/ConsumeBPS
// guard the underlying buckets with a mutex rather than leaving them open
// to concurrent unsynchronized mutation. A zero RatePPS on either bucket
// means that bucket is unconfigured and never drops.
type Global struct {
	mu  sync.Mutex
	PPS *Bucket
	BPS *Bucket
}

// NewGlobal builds a Global with both buckets primed at the given rates.
// A rate of 0 leaves that bucket permanently "unlimited" per Bucket's
// Consume contract.
func NewGlobal(ppsRate, bpsRate uint64, now time.Time) *Global {
	return &Global{
		PPS: NewBucket(ppsRate, now),
		BPS: NewBucket(bpsRate, now),
	}
}

// ConsumePPS attempts to take one packet-count token, safe for concurrent
// use by every worker.
func (g *Global) ConsumePPS(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.PPS.Consume(1, now)
}

// ConsumeBPS attempts to take bytes tokens, safe for concurrent use by
// every worker.
func (g *Global) ConsumeBPS(bytes float64, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.BPS.Consume(bytes, now)
}

// CurrentPPS returns the PPS bucket's configured rate (RatePPS), not a
// measured consumption rate. Used to fill the pps_estimate field on
// emitted events rather than leaving it permanently zero.
func (g *Global) CurrentPPS() uint64 {
	return g.PPS.RatePPS
}

// CurrentBPS mirrors CurrentPPS for the byte-rate bucket.
func (g *Global) CurrentBPS() uint64 {
	return g.BPS.RatePPS
}
