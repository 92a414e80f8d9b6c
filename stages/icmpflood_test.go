package stages

import (
	"testing"
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/stats"
)

func enableICMPFlood(deps *pipeline.Deps) {
	deps.Shared.Config.Replace(map[config.Key]uint64{config.ICMPFloodEnabled: 1})
}

func icmpPacket(icmpType uint8, l4HeaderLen, payloadLen int) *packet.Context {
	return &packet.Context{Protocol: packet.ProtoICMP, ICMPType: icmpType, L4HeaderLen: l4HeaderLen, PayloadLen: payloadLen}
}

func TestICMPFloodDisabledSkips(t *testing.T) {
	deps := newTestDeps()
	res := ICMPFlood{}.Check(icmpPacket(99, 8, 2000), deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue when disabled", res.Verdict)
	}
}

func TestICMPFloodWhitelistedSkips(t *testing.T) {
	deps := newTestDeps()
	enableICMPFlood(deps)
	pkt := icmpPacket(99, 8, 2000)
	pkt.Whitelisted = true
	res := ICMPFlood{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue for a whitelisted packet", res.Verdict)
	}
}

func TestICMPFloodNonICMPSkips(t *testing.T) {
	deps := newTestDeps()
	enableICMPFlood(deps)
	pkt := &packet.Context{Protocol: packet.ProtoUDP, ICMPType: 99, L4HeaderLen: 8, PayloadLen: 2000}
	res := ICMPFlood{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue for non-ICMP traffic", res.Verdict)
	}
}

func TestICMPFloodAcceptedTypesUnderSizePass(t *testing.T) {
	for _, typ := range []uint8{packet.ICMPEchoReply, packet.ICMPDestUnreach, packet.ICMPEchoRequest, packet.ICMPTimeExceeded} {
		deps := newTestDeps()
		enableICMPFlood(deps)
		res := ICMPFlood{}.Check(icmpPacket(typ, 8, 100), deps, time.Now())
		if res.Verdict != pipeline.Continue {
			t.Fatalf("type %d: Verdict = %v, want Continue", typ, res.Verdict)
		}
	}
}

func TestICMPFloodRejectsBadType(t *testing.T) {
	deps := newTestDeps()
	enableICMPFlood(deps)
	res := ICMPFlood{}.Check(icmpPacket(5, 8, 10), deps, time.Now())
	if res.Verdict != pipeline.Drop || res.Reason != stats.ReasonICMPFlood || res.AttackType != "icmp_bad_type" {
		t.Fatalf("got %+v, want Drop/icmp_flood/icmp_bad_type for redirect type 5", res)
	}
}

func TestICMPFloodRejectsOversize(t *testing.T) {
	deps := newTestDeps()
	enableICMPFlood(deps)
	res := ICMPFlood{}.Check(icmpPacket(packet.ICMPEchoRequest, 8, maxICMPTotal), deps, time.Now())
	if res.Verdict != pipeline.Drop || res.Reason != stats.ReasonICMPFlood || res.AttackType != "icmp_oversize" {
		t.Fatalf("got %+v, want Drop/icmp_flood/icmp_oversize for a header+payload over the cap", res)
	}
}
