// Package pipeline assembles the ordered verdict-stage chain, a packet
// walks through, and the per-core Worker loop that drives it end to end.
package pipeline

import "github.com/edgescrub/scrubcore/stats"

// Verdict is the outcome of a stage, or of the full pipeline walk.
type Verdict int

const (
	// Continue means the stage expressed no opinion; the walk proceeds to
	// the next stage. It is never a pipeline's final verdict.
	Continue Verdict = iota
	Pass
	Drop
	TX
	Redirect
	Bypass
)

// Result pairs a terminal Verdict with the drop reason (meaningful only
// when Verdict is Drop) and the attack type string used for telemetry.
type Result struct {
	Verdict    Verdict
	Reason     stats.DropReason
	AttackType string
}
