package pipeline

import (
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/events"
	"github.com/edgescrub/scrubcore/packet"
)

// buildRecord turns a terminal drop Result into an events.Record. The
// pps/bps estimate fields are filled from the worker-shared global
// rate-limiter buckets' configured rate, per SPEC_FULL's Open Question
// resolution, rather than left at zero.
func buildRecord(pkt *packet.Context, res Result, now time.Time, deps *Deps) events.Record {
	rec := events.Record{
		Timestamp:  now,
		SrcIP:      pkt.SrcIP,
		DstIP:      pkt.DstIP,
		SrcPort:    pkt.SrcPort,
		DstPort:    pkt.DstPort,
		Protocol:   pkt.Protocol,
		AttackType: attackTypeFor(res),
		Action:     events.ActionDrop,
		DropReason: res.Reason,
	}
	if deps.Shared != nil && deps.Shared.Global != nil {
		rec.PPSEstimate = deps.Shared.Global.CurrentPPS()
		rec.BPSEstimate = deps.Shared.Global.CurrentBPS()
	}
	if deps.Shared != nil {
		rec.EscalationLevel = deps.Shared.Config.Get(config.EscalationLevel)
	}
	return rec
}
