package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/conntrack"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/stats"
)

// ACKFlood implements spec.md §4.11: a bare ACK with no matching
// conntrack entry in either direction is an ACK flood.
type ACKFlood struct{}

func (ACKFlood) Name() string { return "ack_flood" }

func (ACKFlood) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if pkt.Whitelisted || !deps.Shared.Config.GetBool(config.ConntrackEnabled) || pkt.Protocol != packet.ProtoTCP {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	if pkt.TCPFlags != packet.TCPFlagACK {
		return pipeline.Result{Verdict: pipeline.Continue}
	}

	tuple := conntrack.FiveTuple{SrcIP: pkt.SrcIP, DstIP: pkt.DstIP, SrcPort: pkt.SrcPort, DstPort: pkt.DstPort, Protocol: pkt.Protocol}
	if _, _, found := deps.Conntrack.Lookup(tuple); found {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonACKInvalid, AttackType: "ack_flood"}
}
