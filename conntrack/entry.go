// Package conntrack tracks per-5-tuple connection state: packet/byte
// counters in each direction, TCP state machine progression, and the flag
// bits other stages consult (cookie-verified, whitelisted, suspect,
// reputation-ok, geoip-checked).
package conntrack

import (
	"time"

	"github.com/edgescrub/scrubcore/packet"
)

// FiveTuple identifies a flow. Direction matters: a reverse-direction
// packet has its own FiveTuple with src/dst swapped, and Table.Lookup
// checks both directions explicitly rather than normalizing them, since
// forward and reverse counters are tracked separately.
type FiveTuple struct {
	SrcIP    packet.IPv4
	DstIP    packet.IPv4
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// Reverse returns the FiveTuple for the opposite direction of the same
// flow.
func (f FiveTuple) Reverse() FiveTuple {
	return FiveTuple{SrcIP: f.DstIP, DstIP: f.SrcIP, SrcPort: f.DstPort, DstPort: f.SrcPort, Protocol: f.Protocol}
}

// Entry is one tracked connection.
type Entry struct {
	LastSeen time.Time

	ForwardPackets uint64
	ForwardBytes   uint64
	ReversePackets uint64
	ReverseBytes   uint64

	State State

	CookieVerified bool
	Whitelisted    bool
	Suspect        bool
	ReputationOK   bool
	GeoIPChecked   bool

	ExpectedNextSeq uint32
	ViolationCount  uint32
}

// AdvanceFromForward records a forward-direction packet and advances
// State on TCP flag transitions, per the table in spec.md §4.9.
func (e *Entry) AdvanceFromForward(now time.Time, protocol uint8, flags uint8, seq uint32, payloadLen int) {
	e.LastSeen = now
	e.ForwardPackets++
	e.ForwardBytes += uint64(payloadLen)
	if protocol == packet.ProtoTCP {
		e.advanceTCP(flags)
		e.ExpectedNextSeq = nextSeq(seq, flags, payloadLen)
	} else {
		e.promoteNonTCP()
	}
}

// nextSeq computes the sequence number a following forward-direction
// segment should carry: the SYN and FIN flags each consume one sequence
// number in addition to any payload bytes.
func nextSeq(seq uint32, flags uint8, payloadLen int) uint32 {
	next := seq + uint32(payloadLen)
	if flags&packet.TCPFlagSYN != 0 || flags&packet.TCPFlagFIN != 0 {
		next++
	}
	return next
}

// AdvanceFromReverse mirrors AdvanceFromForward for the reverse direction,
// and is also where UDP/ICMP entries are promoted NEW -> ESTABLISHED on
// the first reply, per spec.md §4.16.
func (e *Entry) AdvanceFromReverse(now time.Time, protocol uint8, flags uint8, payloadLen int) {
	e.LastSeen = now
	e.ReversePackets++
	e.ReverseBytes += uint64(payloadLen)
	if protocol == packet.ProtoTCP {
		e.advanceTCP(flags)
	} else {
		e.promoteNonTCP()
	}
}

func (e *Entry) promoteNonTCP() {
	if e.State == New {
		e.State = Established
	}
}

// advanceTCP applies the subset of the TCP state machine spec.md §4.9
// requires: flag-driven transitions only, no RTT/window tracking.
func (e *Entry) advanceTCP(flags uint8) {
	syn := flags&packet.TCPFlagSYN != 0
	ack := flags&packet.TCPFlagACK != 0
	fin := flags&packet.TCPFlagFIN != 0
	rst := flags&packet.TCPFlagRST != 0

	if rst {
		e.State = Rst
		return
	}
	switch e.State {
	case New:
		if syn && !ack {
			e.State = SynSent
		}
	case SynSent:
		if syn && ack {
			e.State = SynRecv
		}
	case SynRecv:
		if ack && !syn {
			e.State = Established
		}
	case Established:
		if fin {
			e.State = FinWait
		}
	case FinWait:
		if fin || ack {
			e.State = TimeWait
		}
	case TimeWait, Closed:
		// no flag other than RST (handled above) moves these states;
		// otherwise they leave only via eviction.
	}
}
