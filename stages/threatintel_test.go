package stages

import (
	"testing"
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/lpm"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/stats"
)

func enableThreatIntel(deps *pipeline.Deps) {
	deps.Shared.Config.Replace(map[config.Key]uint64{config.ThreatIntelEnabled: 1, config.EscalationLevel: config.EscalationLow})
}

func TestThreatIntelDisabledSkips(t *testing.T) {
	deps := newTestDeps()
	res := ThreatIntel{}.Check(&packet.Context{SrcIP: 1}, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue when disabled", res.Verdict)
	}
}

func TestThreatIntelNoMatchContinues(t *testing.T) {
	deps := newTestDeps()
	enableThreatIntel(deps)
	res := ThreatIntel{}.Check(&packet.Context{SrcIP: 1}, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue for an unlisted source", res.Verdict)
	}
}

func TestThreatIntelHighConfidenceDropDrops(t *testing.T) {
	deps := newTestDeps()
	enableThreatIntel(deps)
	tables := deps.Shared.Tables.Load()
	tables.ThreatIntel.Insert(1, 32, lpm.ThreatEntry{ThreatType: "botnet", Confidence: 90, Action: lpm.ActionDrop})

	res := ThreatIntel{}.Check(&packet.Context{SrcIP: 1}, deps, time.Now())
	if res.Verdict != pipeline.Drop || res.Reason != stats.ReasonThreatIntel || res.AttackType != "botnet" {
		t.Fatalf("got %+v, want Drop/threat_intel/botnet", res)
	}
	if deps.Stats.ThreatViolations != 1 {
		t.Fatalf("ThreatViolations = %d, want 1", deps.Stats.ThreatViolations)
	}
}

func TestThreatIntelLowConfidenceDropPassesAtLowEscalation(t *testing.T) {
	deps := newTestDeps()
	enableThreatIntel(deps)
	tables := deps.Shared.Tables.Load()
	tables.ThreatIntel.Insert(1, 32, lpm.ThreatEntry{ThreatType: "scanner", Confidence: 50, Action: lpm.ActionDrop})

	res := ThreatIntel{}.Check(&packet.Context{SrcIP: 1}, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue: confidence 50 is below the LOW-escalation drop threshold of 80", res.Verdict)
	}
}

func TestThreatIntelRateLimitActionInstallsOverride(t *testing.T) {
	deps := newTestDeps()
	enableThreatIntel(deps)
	deps.Shared.Config.Set(config.SynRatePPS, 1000)
	tables := deps.Shared.Tables.Load()
	tables.ThreatIntel.Insert(1, 32, lpm.ThreatEntry{ThreatType: "probe", Confidence: 60, Action: lpm.ActionRateLimit})

	pkt := &packet.Context{SrcIP: 1, Protocol: packet.ProtoTCP}
	res := ThreatIntel{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue for a RATE_LIMIT action", res.Verdict)
	}
	rate, ok := deps.Shared.Overrides.Lookup(1)
	if !ok || rate != 250 {
		t.Fatalf("got override=%d found=%v, want 250 (1000/4)", rate, ok)
	}
}

func TestThreatIntelMonitorActionEmitsEventAndContinues(t *testing.T) {
	deps := newTestDeps()
	enableThreatIntel(deps)
	tables := deps.Shared.Tables.Load()
	tables.ThreatIntel.Insert(1, 32, lpm.ThreatEntry{ThreatType: "watch", Confidence: 99, Action: lpm.ActionMonitor})

	res := ThreatIntel{}.Check(&packet.Context{SrcIP: 1}, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue for a MONITOR action", res.Verdict)
	}
	if _, ok := deps.Ring.Pop(); !ok {
		t.Fatal("expected a monitor event to be pushed onto the ring")
	}
}
