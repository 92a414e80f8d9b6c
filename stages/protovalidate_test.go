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

func enableProtoValidate(deps *pipeline.Deps) {
	deps.Shared.Config.Replace(map[config.Key]uint64{config.ProtoValidationEnabled: 1})
}

func TestProtoValidateSkipsWhitelisted(t *testing.T) {
	deps := newTestDeps()
	enableProtoValidate(deps)
	pkt := &packet.Context{Whitelisted: true, HasL4: true, Protocol: packet.ProtoTCP}
	res := ProtoValidate{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue for a whitelisted packet", res.Verdict)
	}
}

func TestProtoValidateSkipsNonL4(t *testing.T) {
	deps := newTestDeps()
	enableProtoValidate(deps)
	res := ProtoValidate{}.Check(&packet.Context{HasL4: false}, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue when there is no L4 header", res.Verdict)
	}
}

func TestProtoValidateMemcachedDrops(t *testing.T) {
	deps := newTestDeps()
	enableProtoValidate(deps)
	pkt := &packet.Context{HasL4: true, Protocol: packet.ProtoUDP, DstPort: 11211}
	res := ProtoValidate{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Drop || res.Reason != stats.ReasonMemcachedAmp {
		t.Fatalf("got %+v, want Drop/memcached_amp", res)
	}
}

func dnsPayload(qr bool, ancount uint16) []byte {
	buf := make([]byte, 12)
	if qr {
		buf[2] = 0x80
	}
	buf[6] = byte(ancount >> 8)
	buf[7] = byte(ancount)
	return buf
}

func contextWithUDPPayload(dstPort uint16, payload []byte) *packet.Context {
	return &packet.Context{
		Data:          append([]byte{}, payload...),
		HasL4:         true,
		Protocol:      packet.ProtoUDP,
		DstPort:       dstPort,
		PayloadOffset: 0,
		PayloadLen:    len(payload),
	}
}

func TestProtoValidateDNSAmplificationResponse(t *testing.T) {
	deps := newTestDeps()
	enableProtoValidate(deps)
	pkt := contextWithUDPPayload(portDNS, dnsPayload(true, 20))
	res := ProtoValidate{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Drop || res.Reason != stats.ReasonDNSAmp {
		t.Fatalf("got %+v, want Drop/dns_amp for a large-answer-count response", res)
	}
}

func TestProtoValidateDNSNormalQueryPasses(t *testing.T) {
	deps := newTestDeps()
	enableProtoValidate(deps)
	pkt := contextWithUDPPayload(portDNS, dnsPayload(false, 0))
	res := ProtoValidate{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue for an ordinary query", res.Verdict)
	}
}

func tcpContext(srcPort, dstPort uint16, flags uint8, seq uint32) *packet.Context {
	return &packet.Context{
		HasL4:    true,
		Protocol: packet.ProtoTCP,
		SrcIP:    1, DstIP: 2,
		SrcPort: srcPort, DstPort: dstPort,
		TCPFlags: flags, TCPSeq: seq,
	}
}

func TestProtoValidateTCPPureSynWithNoEntryContinues(t *testing.T) {
	deps := newTestDeps()
	enableProtoValidate(deps)
	pkt := tcpContext(1000, 80, packet.TCPFlagSYN, 1)
	res := ProtoValidate{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue for a pure SYN with no existing entry", res.Verdict)
	}
}

func TestProtoValidateTCPBareAckWithNoEntryDrops(t *testing.T) {
	deps := newTestDeps()
	enableProtoValidate(deps)
	pkt := tcpContext(1000, 80, packet.TCPFlagACK, 1)
	res := ProtoValidate{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Drop || res.Reason != stats.ReasonTCPState {
		t.Fatalf("got %+v, want Drop/tcp_state for a bare ACK with no conntrack entry", res)
	}
}

func TestProtoValidateTCPEstablishedTolerateSynAckRetransmit(t *testing.T) {
	deps := newTestDeps()
	enableProtoValidate(deps)
	deps.Shared.Config.Set(config.EscalationLevel, config.EscalationLow)

	tuple := conntrack.FiveTuple{SrcIP: 1, DstIP: 2, SrcPort: 1000, DstPort: 80, Protocol: packet.ProtoTCP}
	entry := deps.Conntrack.InsertIfAbsent(tuple, time.Now())
	entry.State = conntrack.Established

	// A retransmitted SYN/ACK on an already-established flow is not a
	// state violation; only a bare SYN (no ACK) is.
	pkt := tcpContext(1000, 80, packet.TCPFlagSYN|packet.TCPFlagACK, 1)
	for i := 0; i < 10; i++ {
		res := ProtoValidate{}.Check(pkt, deps, time.Now())
		if res.Verdict != pipeline.Continue {
			t.Fatalf("packet %d: Verdict = %v, want Continue for a SYN/ACK retransmit on an established flow", i, res.Verdict)
		}
	}
}

func TestProtoValidateTCPInvalidFlagsForStateAccumulatesViolations(t *testing.T) {
	deps := newTestDeps()
	enableProtoValidate(deps)
	deps.Shared.Config.Set(config.EscalationLevel, config.EscalationLow)

	tuple := conntrack.FiveTuple{SrcIP: 1, DstIP: 2, SrcPort: 1000, DstPort: 80, Protocol: packet.ProtoTCP}
	entry := deps.Conntrack.InsertIfAbsent(tuple, time.Now())
	entry.State = conntrack.Established

	// A SYN while ESTABLISHED is invalid; LOW escalation tolerates 3
	// violations before dropping (threshold exceeded on the 4th).
	pkt := tcpContext(1000, 80, packet.TCPFlagSYN, 1)
	var res pipeline.Result
	for i := 0; i < 4; i++ {
		res = ProtoValidate{}.Check(pkt, deps, time.Now())
	}
	if res.Verdict != pipeline.Drop || res.Reason != stats.ReasonTCPState {
		t.Fatalf("got %+v after 4 invalid-state packets, want Drop/tcp_state", res)
	}
}
