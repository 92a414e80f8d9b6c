package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/stats"
)

// maxICMPTotal bounds payload plus the 8-byte ICMP header, per spec.md §4.13.
const maxICMPTotal = 1024

// ICMPFlood implements spec.md §4.13.
type ICMPFlood struct{}

func (ICMPFlood) Name() string { return "icmp_flood" }

func (ICMPFlood) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if pkt.Whitelisted || !deps.Shared.Config.GetBool(config.ICMPFloodEnabled) || pkt.Protocol != packet.ProtoICMP {
		return pipeline.Result{Verdict: pipeline.Continue}
	}

	switch pkt.ICMPType {
	case packet.ICMPEchoReply, packet.ICMPDestUnreach, packet.ICMPEchoRequest, packet.ICMPTimeExceeded:
	default:
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonICMPFlood, AttackType: "icmp_bad_type"}
	}

	if pkt.L4HeaderLen+pkt.PayloadLen > maxICMPTotal {
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonICMPFlood, AttackType: "icmp_oversize"}
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}
