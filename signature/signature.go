// Package signature implements the fixed-capacity attack-signature table
// matched against every packet's L3/L4 fields, per spec.md §4.7.
package signature

import "github.com/edgescrub/scrubcore/packet"

// MaxSignatures bounds the table size, matching spec.md's "size capped,
// e.g., 8".
const MaxSignatures = 8

// Range is an inclusive [Low, High] range; {0, 0} means "any", per
// spec.md's "ranges with both endpoints zero are any" rule.
type Range struct {
	Low  uint16
	High uint16
}

func (r Range) matches(v uint16) bool {
	if r.Low == 0 && r.High == 0 {
		return true
	}
	return v >= r.Low && v <= r.High
}

// Signature is one attack fingerprint. Protocol 0 means "any". Fingerprint
// is only compared when RequireFingerprint is set, since computing it is
// otherwise wasted work.
type Signature struct {
	Protocol           uint8
	TCPFlagMask        uint8
	TCPFlagMatch       uint8
	SrcPortRange       Range
	DstPortRange       Range
	PacketLenRange     Range
	RequireFingerprint bool
	Fingerprint        uint32
}

// Table is the active signature set, published wholesale by the control
// plane (hence no mutex: readers only ever see a fully-built Table via
// atomic.Value).
type Table struct {
	Signatures []Signature
}

// NewTable returns an empty signature table.
func NewTable() *Table {
	return &Table{}
}

// Match reports whether pkt matches any active signature.
func (t *Table) Match(pkt *packet.Context) bool {
	if t == nil {
		return false
	}
	limit := len(t.Signatures)
	if limit > MaxSignatures {
		limit = MaxSignatures
	}
	for i := 0; i < limit; i++ {
		s := &t.Signatures[i]
		if matchOne(s, pkt) {
			return true
		}
	}
	return false
}

func matchOne(s *Signature, pkt *packet.Context) bool {
	if s.Protocol != 0 && s.Protocol != pkt.Protocol {
		return false
	}
	if s.TCPFlagMask != 0 && (pkt.TCPFlags&s.TCPFlagMask) != s.TCPFlagMatch {
		return false
	}
	if !s.SrcPortRange.matches(pkt.SrcPort) {
		return false
	}
	if !s.DstPortRange.matches(pkt.DstPort) {
		return false
	}
	if !s.PacketLenRange.matches(pkt.TotalLen) {
		return false
	}
	if s.RequireFingerprint && pkt.PayloadFingerprint != s.Fingerprint {
		return false
	}
	return true
}
