package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/reputation"
	"github.com/edgescrub/scrubcore/stats"
)

// GlobalRateLimit implements spec.md §4.15: two fixed token buckets
// shared across every source, one consuming 1 token per packet and one
// consuming the packet's length in bytes.
type GlobalRateLimit struct{}

func (GlobalRateLimit) Name() string { return "global_rate_limit" }

func (GlobalRateLimit) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if pkt.Whitelisted {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	global := deps.Shared.Global
	if !global.ConsumePPS(now) {
		Penalize(deps, pkt.SrcIP, reputation.PenaltyRateExceeded, now)
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonRateLimit, AttackType: "global_pps_limit"}
	}
	if !global.ConsumeBPS(float64(pkt.TotalLen), now) {
		Penalize(deps, pkt.SrcIP, reputation.PenaltyRateExceeded, now)
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonRateLimit, AttackType: "global_bps_limit"}
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}
