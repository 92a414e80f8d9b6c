package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/escalation"
	"github.com/edgescrub/scrubcore/lpm"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/stats"
)

// ThreatIntel implements spec.md §4.3.
type ThreatIntel struct{}

func (ThreatIntel) Name() string { return "threat_intel" }

func (ThreatIntel) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if pkt.Whitelisted || !deps.Shared.Config.GetBool(config.ThreatIntelEnabled) {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	tables := deps.Shared.Tables.Load()
	v, ok := tables.ThreatIntel.Lookup(pkt.SrcIP)
	if !ok {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	entry := v.(lpm.ThreatEntry)
	level := deps.Shared.Config.Get(config.EscalationLevel)

	switch entry.Action {
	case lpm.ActionDrop:
		if entry.Confidence >= escalation.ThreatDropConfidence(level) {
			deps.Stats.ThreatViolations++
			return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonThreatIntel, AttackType: entry.ThreatType}
		}
	case lpm.ActionRateLimit:
		if entry.Confidence >= escalation.ThreatRateLimitConfidence(level) {
			base := protocolBaseRate(deps, pkt.Protocol)
			deps.Shared.Overrides.InstallIfAbsent(pkt.SrcIP, floorOne(base/4))
		}
	case lpm.ActionMonitor:
		emitMonitor(deps, pkt, now, "threat_intel_monitor")
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}
