package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/stats"
)

// Reputation implements spec.md §4.5, including the port-scan detector.
// Port-scan and other stages' penalties are applied through Penalize,
// which is also how other stages (fragment, payload, proto validation,
// rate limiting) feed the shared reputation_penalize contract — they call
// deps.Reputation.GetOrCreate and Penalize directly rather than going
// through this Stage's Check, since Check only runs once per packet in
// pipeline order but penalties can originate from any later stage.
type Reputation struct{}

func (Reputation) Name() string { return "reputation" }

func (Reputation) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if pkt.Whitelisted || !deps.Shared.Config.GetBool(config.ReputationEnabled) {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	entry := deps.Reputation.GetOrCreate(pkt.SrcIP, now)
	if entry.Blocked {
		deps.Stats.ReputationBlocks++
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonReputation, AttackType: "reputation_blocked"}
	}

	entry.Decay(now)

	penalty := entry.TrackPort(pkt.DstPort, now)
	if penalty == 0 {
		return pipeline.Result{Verdict: pipeline.Continue}
	}

	threshold := int(deps.Shared.Config.Get(config.ReputationThreshold))
	blocked := entry.Penalize(penalty, threshold, now)
	if blocked {
		deps.Stats.ReputationBlocks++
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonReputation, AttackType: "port_scan"}
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}

// Penalize is the reputation_penalize contract other stages call when
// they detect a violation, per spec.md §4.5's penalty table.
func Penalize(deps *pipeline.Deps, src packet.IPv4, penalty int, now time.Time) bool {
	entry := deps.Reputation.GetOrCreate(src, now)
	threshold := int(deps.Shared.Config.Get(config.ReputationThreshold))
	return entry.Penalize(penalty, threshold, now)
}
