package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/packet"
	payloadpkg "github.com/edgescrub/scrubcore/payload"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/reputation"
	"github.com/edgescrub/scrubcore/stats"
)

// Payload implements spec.md §4.8.
type Payload struct{}

func (Payload) Name() string { return "payload" }

func (Payload) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if pkt.Whitelisted || !deps.Shared.Config.GetBool(config.PayloadEnabled) {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	table := deps.Shared.PayloadRules.Load()
	action, matched := table.Match(pkt)
	if !matched {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	deps.Stats.PayloadViolations++
	switch action {
	case payloadpkg.ActionDrop:
		Penalize(deps, pkt.SrcIP, reputation.PenaltyBadPayload, now)
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonPayloadMatch, AttackType: "payload_match"}
	case payloadpkg.ActionRateLimit:
		base := protocolBaseRate(deps, pkt.Protocol)
		deps.Shared.Overrides.InstallIfAbsent(pkt.SrcIP, floorOne(base/4))
	case payloadpkg.ActionMonitor:
		emitMonitor(deps, pkt, now, "payload_monitor")
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}
