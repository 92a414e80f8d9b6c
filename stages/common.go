package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/events"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
)

// protocolBaseRate selects the configured per-protocol PPS rate (spec.md
// §4.14's TCP->SYN_RATE, UDP->UDP_RATE, ICMP->ICMP_RATE mapping), used as
// the base value adaptive overrides scale from.
func protocolBaseRate(deps *pipeline.Deps, protocol uint8) uint64 {
	switch protocol {
	case packet.ProtoTCP:
		return deps.Shared.Config.Get(config.SynRatePPS)
	case packet.ProtoUDP:
		return deps.Shared.Config.Get(config.UDPRatePPS)
	case packet.ProtoICMP:
		return deps.Shared.Config.Get(config.ICMPRatePPS)
	default:
		return 0
	}
}

// floorOne applies the "floor 1" rule several stages use when installing
// a scaled-down adaptive rate override.
func floorOne(v uint64) uint64 {
	if v < 1 {
		return 1
	}
	return v
}

// emitMonitor enqueues a PASS-action monitoring event without affecting
// the verdict, per the MONITOR action several stages define.
func emitMonitor(deps *pipeline.Deps, pkt *packet.Context, now time.Time, attackType string) {
	if deps.Ring == nil {
		return
	}
	deps.Ring.Push(events.Record{
		Timestamp:  now,
		SrcIP:      pkt.SrcIP,
		DstIP:      pkt.DstIP,
		SrcPort:    pkt.SrcPort,
		DstPort:    pkt.DstPort,
		Protocol:   pkt.Protocol,
		AttackType: attackType,
		Action:     events.ActionPass,
	})
}
