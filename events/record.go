// Package events implements the EventRecord telemetry model, per-worker
// Ring buffers, and the Sink interface consumers drain, per spec.md §3/§6.
package events

import (
	"time"

	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/stats"
)

// Action mirrors spec.md's EventRecord.action enumeration.
type Action int

const (
	ActionPass Action = iota
	ActionDrop
)

// Record is one emitted telemetry event, per spec.md §3.
type Record struct {
	Timestamp time.Time

	SrcIP    packet.IPv4
	DstIP    packet.IPv4
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8

	AttackType string
	Action     Action
	DropReason stats.DropReason

	PPSEstimate uint64
	BPSEstimate uint64

	ReputationScore int
	CountryCode     string
	EscalationLevel uint64
}
