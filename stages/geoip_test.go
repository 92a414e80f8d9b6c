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

func enableGeoIP(deps *pipeline.Deps, level uint64) {
	deps.Shared.Config.Replace(map[config.Key]uint64{config.GeoIPEnabled: 1, config.EscalationLevel: level})
}

func TestGeoIPDisabledSkips(t *testing.T) {
	deps := newTestDeps()
	res := GeoIP{}.Check(&packet.Context{SrcIP: 1}, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue when disabled", res.Verdict)
	}
}

func TestGeoIPUnknownAddressContinuesBelowCritical(t *testing.T) {
	deps := newTestDeps()
	enableGeoIP(deps, config.EscalationHigh)
	res := GeoIP{}.Check(&packet.Context{SrcIP: 1}, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue for an unresolvable address below CRITICAL", res.Verdict)
	}
}

func TestGeoIPUnknownAddressDropsAtCritical(t *testing.T) {
	deps := newTestDeps()
	enableGeoIP(deps, config.EscalationCritical)
	res := GeoIP{}.Check(&packet.Context{SrcIP: 1}, deps, time.Now())
	if res.Verdict != pipeline.Drop || res.Reason != stats.ReasonGeoIP || res.AttackType != "geoip_unknown" {
		t.Fatalf("got %+v, want Drop/geoip/geoip_unknown at CRITICAL", res)
	}
}

func TestGeoIPNoCountryPolicyDropsAtCritical(t *testing.T) {
	deps := newTestDeps()
	enableGeoIP(deps, config.EscalationCritical)
	tables := deps.Shared.Tables.Load()
	tables.GeoIP.Insert(1, 32, lpm.GeoEntry{CountryCode: "ZZ"})

	res := GeoIP{}.Check(&packet.Context{SrcIP: 1}, deps, time.Now())
	if res.Verdict != pipeline.Drop || res.AttackType != "geoip_no_policy" {
		t.Fatalf("got %+v, want Drop/geoip_no_policy when no country policy exists, at CRITICAL", res)
	}
}

func TestGeoIPCountryPolicyDrop(t *testing.T) {
	deps := newTestDeps()
	enableGeoIP(deps, config.EscalationLow)
	tables := deps.Shared.Tables.Load()
	tables.GeoIP.Insert(1, 32, lpm.GeoEntry{CountryCode: "XX"})
	country := deps.Shared.Country.Load()
	country.Policies["XX"] = lpm.ActionDrop

	res := GeoIP{}.Check(&packet.Context{SrcIP: 1}, deps, time.Now())
	if res.Verdict != pipeline.Drop || res.Reason != stats.ReasonGeoIP || res.AttackType != "geoip_policy" {
		t.Fatalf("got %+v, want Drop/geoip/geoip_policy", res)
	}
	if deps.Stats.GeoViolations != 1 {
		t.Fatalf("GeoViolations = %d, want 1", deps.Stats.GeoViolations)
	}
}

func TestGeoIPCountryPolicyRateLimitInstallsOverride(t *testing.T) {
	deps := newTestDeps()
	enableGeoIP(deps, config.EscalationLow)
	deps.Shared.Config.Set(config.UDPRatePPS, 2000)
	tables := deps.Shared.Tables.Load()
	tables.GeoIP.Insert(1, 32, lpm.GeoEntry{CountryCode: "YY"})
	country := deps.Shared.Country.Load()
	country.Policies["YY"] = lpm.ActionRateLimit

	pkt := &packet.Context{SrcIP: 1, Protocol: packet.ProtoUDP}
	res := GeoIP{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue for a RATE_LIMIT country policy", res.Verdict)
	}
	rate, ok := deps.Shared.Overrides.Lookup(1)
	if !ok || rate != 1000 {
		t.Fatalf("got override=%d found=%v, want 1000 (2000/2)", rate, ok)
	}
}

func TestGeoIPCountryPolicyMonitorEmitsEventAndContinues(t *testing.T) {
	deps := newTestDeps()
	enableGeoIP(deps, config.EscalationLow)
	tables := deps.Shared.Tables.Load()
	tables.GeoIP.Insert(1, 32, lpm.GeoEntry{CountryCode: "WW"})
	country := deps.Shared.Country.Load()
	country.Policies["WW"] = lpm.ActionMonitor

	res := GeoIP{}.Check(&packet.Context{SrcIP: 1}, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue for a MONITOR country policy", res.Verdict)
	}
	if _, ok := deps.Ring.Pop(); !ok {
		t.Fatal("expected a monitor event to be pushed onto the ring")
	}
}
