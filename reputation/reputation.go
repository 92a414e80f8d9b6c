// Package reputation tracks a per-source-IP abuse score with decay and a
// port-scan detector, per spec.md §4.5.
package reputation

import (
	"time"

	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/shardmap"
)

// Score ceiling and the default block threshold, per spec.md §3/§4.5.
const (
	MaxScore           = 1000
	DefaultThreshold   = 500
	DecayPerSecond     = 5
	MaxDecaySeconds    = 60
	PortScanWindow     = 10 * time.Second
	PortScanThreshold  = 20
	PortScanPenalty    = 70
)

// Penalties applied by other stages through Penalize, per spec.md §4.5's
// reputation_penalize contract.
const (
	PenaltySynWithoutAck  = 50
	PenaltyRateExceeded   = 30
	PenaltyProtocolAnomaly = 40
	PenaltyBadPayload     = 60
	PenaltyFragment       = 20
	PenaltyPortScan       = 70
)

// Entry is one source IP's reputation state.
type Entry struct {
	Score          int
	TotalPackets   uint64
	DroppedPackets uint64
	ViolationCount uint64
	FirstSeen      time.Time
	LastSeen       time.Time
	LastDecay      time.Time
	Blocked        bool

	PortScanWindowStart time.Time
	DistinctPorts       int
	PortBitmap          uint64
}

const (
	numShards   = 8
	maxPerShard = 65536
)

// Table is one worker's private reputation table.
type Table struct {
	m *shardmap.Map
}

// NewTable returns an empty reputation table.
func NewTable() *Table {
	return &Table{m: shardmap.New(numShards, maxPerShard, time.Minute)}
}

// GetOrCreate returns the entry for src, creating one with score 0 on
// first sight per spec.md §4.5.
func (t *Table) GetOrCreate(src packet.IPv4, now time.Time) *Entry {
	v := t.m.GetOrCreate(uint64(src), src, func() interface{} {
		return &Entry{FirstSeen: now, LastSeen: now, LastDecay: now, PortScanWindowStart: now}
	})
	return v.(*Entry)
}

// Bump advances the eviction generation.
func (t *Table) Bump() { t.m.Bump() }

// Len reports the number of tracked sources.
func (t *Table) Len() int { return t.m.Len() }

// Decay applies the fixed-per-second decay, capped at MaxDecaySeconds
// elapsed, flooring the score at 0.
func (e *Entry) Decay(now time.Time) {
	elapsed := int(now.Sub(e.LastDecay).Seconds())
	if elapsed <= 0 {
		return
	}
	if elapsed > MaxDecaySeconds {
		elapsed = MaxDecaySeconds
	}
	e.Score -= elapsed * DecayPerSecond
	if e.Score < 0 {
		e.Score = 0
	}
	e.LastDecay = now
}

// TrackPort runs the port-scan detector for one observed destination
// port, returning the port-scan penalty (PortScanPenalty) on every call
// while DistinctPorts exceeds PortScanThreshold in the current window,
// else 0. Only ports 0-63 are counted.
func (e *Entry) TrackPort(port uint16, now time.Time) int {
	if now.Sub(e.PortScanWindowStart) > PortScanWindow {
		e.PortScanWindowStart = now
		e.DistinctPorts = 0
		e.PortBitmap = 0
	}
	if port < 64 {
		bit := uint64(1) << port
		if e.PortBitmap&bit == 0 {
			e.PortBitmap |= bit
			e.DistinctPorts++
		}
	}
	if e.DistinctPorts > PortScanThreshold {
		return PortScanPenalty
	}
	return 0
}

// Penalize adds penalty to the score (capped at MaxScore), increments the
// violation counter, and latches Blocked if the score reaches threshold.
// Returns the updated Blocked state.
func (e *Entry) Penalize(penalty int, threshold int, now time.Time) bool {
	e.Score += penalty
	if e.Score > MaxScore {
		e.Score = MaxScore
	}
	e.ViolationCount++
	e.LastSeen = now
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if e.Score >= threshold {
		e.Blocked = true
	}
	return e.Blocked
}
