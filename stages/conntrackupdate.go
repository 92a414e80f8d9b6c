package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/conntrack"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
)

// ConntrackUpdate implements spec.md §4.16, the pipeline-closing stage.
// It always runs for a packet that reaches it, including whitelisted
// packets, since conntrack state must stay accurate regardless of ACL
// outcome.
type ConntrackUpdate struct{}

func (ConntrackUpdate) Name() string { return "conntrack_update" }

func (ConntrackUpdate) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if !deps.Shared.Config.GetBool(config.ConntrackEnabled) || !pkt.HasL4 {
		return pipeline.Result{Verdict: pipeline.Continue}
	}

	tuple := conntrack.FiveTuple{SrcIP: pkt.SrcIP, DstIP: pkt.DstIP, SrcPort: pkt.SrcPort, DstPort: pkt.DstPort, Protocol: pkt.Protocol}
	entry, forward, found := deps.Conntrack.Lookup(tuple)
	if !found {
		entry = deps.Conntrack.InsertIfAbsent(tuple, now)
		deps.Stats.ConntrackNew++
		forward = true
	}

	if pkt.Whitelisted {
		entry.Whitelisted = true
	}

	if forward {
		entry.AdvanceFromForward(now, pkt.Protocol, pkt.TCPFlags, pkt.TCPSeq, pkt.PayloadLen)
	} else {
		entry.AdvanceFromReverse(now, pkt.Protocol, pkt.TCPFlags, pkt.PayloadLen)
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}
