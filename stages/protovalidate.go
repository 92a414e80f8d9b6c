package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/conntrack"
	"github.com/edgescrub/scrubcore/escalation"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/policy"
	"github.com/edgescrub/scrubcore/reputation"
	"github.com/edgescrub/scrubcore/stats"
)

// Well-known ports dispatched by ProtoValidate, per spec.md §4.9.
const (
	portDNS       = 53
	portNTP       = 123
	portSSDP      = 1900
	portMemcached = 11211
)

// ProtoValidate implements spec.md §4.9's deep protocol validation,
// dispatching on destination port (well-known or registered via the
// port-protocol map) and on TCP state for everything else.
type ProtoValidate struct{}

func (ProtoValidate) Name() string { return "proto_validate" }

func (ProtoValidate) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if pkt.Whitelisted || !deps.Shared.Config.GetBool(config.ProtoValidationEnabled) || !pkt.HasL4 {
		return pipeline.Result{Verdict: pipeline.Continue}
	}

	bits := deps.Shared.PortProto.Load().Lookup(pkt.DstPort)

	switch {
	case pkt.Protocol == packet.ProtoUDP && (pkt.DstPort == portDNS || bits&policy.ProtoBitDNS != 0):
		return checkDNS(pkt, deps, now)
	case pkt.Protocol == packet.ProtoUDP && (pkt.DstPort == portNTP || bits&policy.ProtoBitNTP != 0):
		return checkNTP(pkt, deps, now)
	case pkt.Protocol == packet.ProtoUDP && (pkt.DstPort == portSSDP || bits&policy.ProtoBitSSDP != 0):
		return checkSSDP(pkt, deps, now)
	case pkt.Protocol == packet.ProtoUDP && (pkt.DstPort == portMemcached || bits&policy.ProtoBitMemcached != 0):
		deps.Stats.ThreatViolations++
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonMemcachedAmp, AttackType: "memcached_amp"}
	case pkt.Protocol == packet.ProtoTCP:
		return checkTCPState(pkt, deps, now)
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}

func checkDNS(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	payload := pkt.Payload()
	if len(payload) < 12 {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	flags := uint16(payload[2])<<8 | uint16(payload[3])
	qr := flags&0x8000 != 0
	opcode := uint8((flags >> 11) & 0xf)
	qdcount := uint16(payload[4])<<8 | uint16(payload[5])
	ancount := uint16(payload[6])<<8 | uint16(payload[7])

	if qr && ancount > 10 {
		Penalize(deps, pkt.SrcIP, reputation.PenaltyProtocolAnomaly, now)
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonDNSAmp, AttackType: "dns_amp"}
	}

	strictness := deps.Shared.Config.Get(config.DNSStrictness)
	if !qr && strictness >= config.DNSStrict {
		if qdcount != 1 || opcode != 0 || pkt.PayloadLen > 512 {
			return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonProtoInvalid, AttackType: "dns_invalid"}
		}
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}

func checkNTP(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	payload := pkt.Payload()
	if len(payload) < 1 {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	mode := payload[0] & 0x7

	switch mode {
	case 7:
		Penalize(deps, pkt.SrcIP, reputation.PenaltyProtocolAnomaly, now)
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonNTPAmp, AttackType: "ntp_monlist"}
	case 6:
		tuple := conntrack.FiveTuple{SrcIP: pkt.SrcIP, DstIP: pkt.DstIP, SrcPort: pkt.SrcPort, DstPort: pkt.DstPort, Protocol: pkt.Protocol}
		if _, _, found := deps.Conntrack.Lookup(tuple); !found {
			return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonNTPAmp, AttackType: "ntp_control_unsolicited"}
		}
	case 3, 4:
		if len(payload) < 48 {
			return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonProtoInvalid, AttackType: "ntp_short"}
		}
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}

func checkSSDP(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	payload := pkt.Payload()
	if len(payload) >= 8 && string(payload[:8]) == "HTTP/1.1" {
		Penalize(deps, pkt.SrcIP, reputation.PenaltyProtocolAnomaly, now)
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonSSDPAmp, AttackType: "ssdp_amp"}
	}
	if len(payload) >= 6 && string(payload[:6]) == "NOTIFY" {
		Penalize(deps, pkt.SrcIP, reputation.PenaltyProtocolAnomaly, now)
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonSSDPAmp, AttackType: "ssdp_amp"}
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}

// checkTCPState implements the TCP-state-validation half of spec.md §4.9.
func checkTCPState(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	tuple := conntrack.FiveTuple{SrcIP: pkt.SrcIP, DstIP: pkt.DstIP, SrcPort: pkt.SrcPort, DstPort: pkt.DstPort, Protocol: pkt.Protocol}
	entry, forward, found := deps.Conntrack.Lookup(tuple)

	syn := pkt.TCPFlags&packet.TCPFlagSYN != 0
	ack := pkt.TCPFlags&packet.TCPFlagACK != 0
	rst := pkt.TCPFlags&packet.TCPFlagRST != 0
	pureSYN := syn && !ack

	if !found {
		if pureSYN || (rst && pkt.TCPFlags == packet.TCPFlagRST) {
			return pipeline.Result{Verdict: pipeline.Continue}
		}
		Penalize(deps, pkt.SrcIP, reputation.PenaltyProtocolAnomaly, now)
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonTCPState, AttackType: "tcp_state_no_entry"}
	}

	if !validFlagsForState(entry.State, pkt.TCPFlags) || outOfWindow(entry, pkt, forward) {
		entry.ViolationCount++
		threshold := escalation.TCPStateViolationThreshold(deps.Shared.Config.Get(config.EscalationLevel))
		if entry.ViolationCount > threshold {
			return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonTCPState, AttackType: "tcp_state_violation"}
		}
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}

func validFlagsForState(state conntrack.State, flags uint8) bool {
	syn := flags&packet.TCPFlagSYN != 0
	ack := flags&packet.TCPFlagACK != 0
	rst := flags&packet.TCPFlagRST != 0
	if rst {
		return true
	}
	switch state {
	case conntrack.New:
		return syn && !ack
	case conntrack.SynSent:
		return (syn && ack) || rst
	case conntrack.SynRecv:
		return ack && !syn
	case conntrack.Established:
		return ack || !syn // bare SYN is a violation; a SYN/ACK retransmit is tolerated
	case conntrack.FinWait:
		return !syn
	case conntrack.Closed, conntrack.TimeWait:
		return false // only RST allowed, already handled above
	}
	return true
}

// outOfWindow reports whether pkt's sequence number is more than 2^30 away
// from the entry's expected next sequence, per spec.md §4.9's signed
// 32-bit wraparound check. ExpectedNextSeq only tracks the forward
// direction, so a reverse-direction packet is never flagged here.
func outOfWindow(entry *conntrack.Entry, pkt *packet.Context, forward bool) bool {
	if !forward || entry.ExpectedNextSeq == 0 {
		return false
	}
	diff := int32(pkt.TCPSeq - entry.ExpectedNextSeq)
	if diff < 0 {
		diff = -diff
	}
	return diff > (1 << 30)
}
