package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/stats"
)

// UDP response source ports with fixed amplification thresholds, per
// spec.md §4.12.
const (
	udpPortDNS      = 53
	udpPortNTP      = 123
	udpPortSSDP     = 1900
	udpPortMemcd    = 11211
	udpPortChargen  = 19
	udpPortCLDAP    = 389
	udpPortSNMP     = 161
	registeredLimit = 512
)

// UDPFlood implements spec.md §4.12: per-source-port payload-length
// thresholds on UDP response traffic, plus a registered-port catch-all
// from the port-protocol map.
type UDPFlood struct{}

func (UDPFlood) Name() string { return "udp_flood" }

func (UDPFlood) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if pkt.Whitelisted || !deps.Shared.Config.GetBool(config.UDPFloodEnabled) || pkt.Protocol != packet.ProtoUDP {
		return pipeline.Result{Verdict: pipeline.Continue}
	}

	limit, ok := udpThreshold(pkt.SrcPort)
	if !ok {
		if bits := deps.Shared.PortProto.Load().Lookup(pkt.SrcPort); bits != 0 {
			limit, ok = registeredLimit, true
		}
	}
	if !ok || pkt.PayloadLen <= limit {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonUDPAmp, AttackType: udpAttackType(pkt.SrcPort)}
}

func udpThreshold(srcPort uint16) (int, bool) {
	switch srcPort {
	case udpPortDNS:
		return 512, true
	case udpPortNTP:
		return 468, true
	case udpPortSSDP:
		return 256, true
	case udpPortMemcd:
		return 1400, true
	case udpPortChargen, udpPortCLDAP, udpPortSNMP:
		return 256, true
	}
	return 0, false
}

func udpAttackType(srcPort uint16) string {
	switch srcPort {
	case udpPortDNS:
		return "dns_amp"
	case udpPortNTP:
		return "ntp_amp"
	case udpPortSSDP:
		return "ssdp_amp"
	case udpPortMemcd:
		return "memcached_amp"
	case udpPortChargen:
		return "chargen_amp"
	case udpPortCLDAP:
		return "cldap_amp"
	case udpPortSNMP:
		return "snmp_amp"
	default:
		return "udp_amp"
	}
}
