package stages

import (
	"testing"
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/conntrack"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/stats"
)

func enableACKFlood(deps *pipeline.Deps) {
	deps.Shared.Config.Replace(map[config.Key]uint64{config.ConntrackEnabled: 1})
}

func TestACKFloodDropsBareAckWithNoEntry(t *testing.T) {
	deps := newTestDeps()
	enableACKFlood(deps)
	pkt := &packet.Context{Protocol: packet.ProtoTCP, TCPFlags: packet.TCPFlagACK, SrcIP: 1, DstIP: 2, SrcPort: 10, DstPort: 20}
	res := ACKFlood{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Drop || res.Reason != stats.ReasonACKInvalid {
		t.Fatalf("got %+v, want Drop/ack_invalid", res)
	}
}

func TestACKFloodPassesWithExistingEntry(t *testing.T) {
	deps := newTestDeps()
	enableACKFlood(deps)
	tuple := conntrack.FiveTuple{SrcIP: 1, DstIP: 2, SrcPort: 10, DstPort: 20, Protocol: packet.ProtoTCP}
	deps.Conntrack.InsertIfAbsent(tuple, time.Now())

	pkt := &packet.Context{Protocol: packet.ProtoTCP, TCPFlags: packet.TCPFlagACK, SrcIP: 1, DstIP: 2, SrcPort: 10, DstPort: 20}
	res := ACKFlood{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue when a conntrack entry already exists", res.Verdict)
	}
}

func TestACKFloodIgnoresNonBareAck(t *testing.T) {
	deps := newTestDeps()
	enableACKFlood(deps)
	pkt := &packet.Context{Protocol: packet.ProtoTCP, TCPFlags: packet.TCPFlagACK | packet.TCPFlagPSH}
	res := ACKFlood{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue for ACK combined with other flags", res.Verdict)
	}
}

func TestACKFloodDisabledSkips(t *testing.T) {
	deps := newTestDeps()
	pkt := &packet.Context{Protocol: packet.ProtoTCP, TCPFlags: packet.TCPFlagACK}
	res := ACKFlood{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue when conntrack is disabled", res.Verdict)
	}
}
