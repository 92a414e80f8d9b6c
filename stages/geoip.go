package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/lpm"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/stats"
)

// GeoIP implements spec.md §4.4.
type GeoIP struct{}

func (GeoIP) Name() string { return "geoip" }

func (GeoIP) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if pkt.Whitelisted || !deps.Shared.Config.GetBool(config.GeoIPEnabled) {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	tables := deps.Shared.Tables.Load()
	level := deps.Shared.Config.Get(config.EscalationLevel)

	v, ok := tables.GeoIP.Lookup(pkt.SrcIP)
	if !ok {
		if level == config.EscalationCritical {
			deps.Stats.GeoViolations++
			return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonGeoIP, AttackType: "geoip_unknown"}
		}
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	entry := v.(lpm.GeoEntry)

	country := deps.Shared.Country.Load()
	action, found := country.Lookup(entry.CountryCode)
	if !found {
		if level == config.EscalationCritical {
			deps.Stats.GeoViolations++
			return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonGeoIP, AttackType: "geoip_no_policy"}
		}
		return pipeline.Result{Verdict: pipeline.Continue}
	}

	switch action {
	case lpm.ActionDrop:
		deps.Stats.GeoViolations++
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonGeoIP, AttackType: "geoip_policy"}
	case lpm.ActionRateLimit:
		base := protocolBaseRate(deps, pkt.Protocol)
		deps.Shared.Overrides.InstallIfAbsent(pkt.SrcIP, floorOne(base/2))
	case lpm.ActionMonitor:
		emitMonitor(deps, pkt, now, "geoip_monitor")
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}
