package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/reputation"
	"github.com/edgescrub/scrubcore/stats"
)

// RateLimit implements spec.md §4.14: per-source token-bucket limiting,
// keyed off the protocol's configured base rate and overridden by any
// adaptive rate installed by an earlier stage.
type RateLimit struct{}

func (RateLimit) Name() string { return "rate_limit" }

func (RateLimit) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if pkt.Whitelisted {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	base := protocolBaseRate(deps, pkt.Protocol)
	if base == 0 {
		return pipeline.Result{Verdict: pipeline.Continue}
	}

	rate := base
	if override, ok := deps.Shared.Overrides.Lookup(pkt.SrcIP); ok {
		rate = override
	}
	if rate == 0 {
		return pipeline.Result{Verdict: pipeline.Continue}
	}

	bucket := deps.RateLimit.GetOrCreate(pkt.SrcIP, rate, now)
	if bucket.RatePPS != rate {
		bucket.SetRate(rate)
	}
	if bucket.Consume(1, now) {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	Penalize(deps, pkt.SrcIP, reputation.PenaltyRateExceeded, now)
	return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonRateLimit, AttackType: "per_source_rate_limit"}
}
