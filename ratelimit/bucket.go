// Package ratelimit implements the per-source and global token-bucket rate
// limiters, plus the adaptive-override map other stages install into.
package ratelimit

import "time"

// Bucket is a single token bucket, matching spec.md's RateLimiter fields.
// RatePPS == 0 means "unlimited": Consume always succeeds and no tokens
// are tracked.
type Bucket struct {
	Tokens         float64
	LastRefill     time.Time
	RatePPS        uint64
	BurstSize      uint64
	TotalPackets   uint64
	DroppedPackets uint64
}

// NewBucket returns a bucket primed with tokens = ratePPS and burst
// capacity = 2x ratePPS, matching spec.md's per-source limiter
// construction on first sight of a source.
func NewBucket(ratePPS uint64, now time.Time) *Bucket {
	return &Bucket{
		Tokens:     float64(ratePPS),
		LastRefill: now,
		RatePPS:    ratePPS,
		BurstSize:  ratePPS * 2,
	}
}

// Refill adds tokens for elapsed time at RatePPS, capping at BurstSize.
func (b *Bucket) Refill(now time.Time) {
	if b.RatePPS == 0 {
		return
	}
	elapsed := now.Sub(b.LastRefill)
	if elapsed <= 0 {
		return
	}
	added := float64(b.RatePPS) * elapsed.Seconds()
	b.Tokens += added
	if b.Tokens > float64(b.BurstSize) {
		b.Tokens = float64(b.BurstSize)
	}
	b.LastRefill = now
}

// Consume attempts to take cost tokens. Returns true on success. When
// RatePPS is 0 ("unlimited"), Consume always succeeds without touching
// Tokens, per spec.md's "rate_pps = 0 signals unlimited" invariant.
func (b *Bucket) Consume(cost float64, now time.Time) bool {
	b.TotalPackets++
	if b.RatePPS == 0 {
		return true
	}
	b.Refill(now)
	if b.Tokens >= cost {
		b.Tokens -= cost
		return true
	}
	b.DroppedPackets++
	return false
}

// SetRate replaces RatePPS (and recomputes BurstSize) without resetting
// accumulated tokens, used when an adaptive override installs a stricter
// rate for a source that already has a bucket.
func (b *Bucket) SetRate(ratePPS uint64) {
	b.RatePPS = ratePPS
	b.BurstSize = ratePPS * 2
	if b.Tokens > float64(b.BurstSize) {
		b.Tokens = float64(b.BurstSize)
	}
}
