// Package syncookie implements SYN-cookie generation and validation,
// per spec.md §4.10, using SipHash-2-4 keyed on a dual-slot rotating seed.
package syncookie

import (
	"encoding/binary"

	"github.com/dchest/siphash"

	"github.com/edgescrub/scrubcore/packet"
)

// mssTable maps the 2-bit MSS index carried in a cookie's low bits to the
// advertised MSS value, per spec.md §4.10.
var mssTable = [4]uint16{256, 536, 1220, 1460}

// MSSIndex returns the table index (0-3) whose MSS value is the largest
// one not exceeding mss, defaulting to index 0 for anything smaller than
// the smallest table entry.
func MSSIndex(mss uint16) uint8 {
	best := uint8(0)
	for i, v := range mssTable {
		if mss >= v {
			best = uint8(i)
		}
	}
	return best
}

// MSSForIndex returns the advertised MSS for a 2-bit index.
func MSSForIndex(idx uint8) uint16 {
	return mssTable[idx&0x3]
}

// Context holds the dual-slot rotating seed spec.md §3 describes: current
// and previous are both accepted for validation to preserve continuity
// across a rotation. The control plane mutates it with Rotate; readers
// hold it behind an atomic.Value and never mutate in place.
type Context struct {
	Current  uint64
	Previous uint64
}

// Rotate returns a new Context with Previous set to the old Current and
// Current set to newSeed, implementing "swapping current->previous and
// writing a fresh current" from spec.md §6 without mutating the receiver
// (callers publish the result via atomic.Value.Store).
func (c Context) Rotate(newSeed uint64) Context {
	return Context{Current: newSeed, Previous: c.Current}
}

// cookieInput packs the 5-tuple fields SipHash is keyed over, in a fixed
// 12-byte layout: src_ip, dst_ip, src_port<<16|dst_port.
func cookieInput(srcIP, dstIP packet.IPv4, srcPort, dstPort uint16) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint32(buf[0:4], uint32(srcIP))
	binary.BigEndian.PutUint32(buf[4:8], uint32(dstIP))
	binary.BigEndian.PutUint16(buf[8:10], srcPort)
	binary.BigEndian.PutUint16(buf[10:12], dstPort)
	return buf
}

// hash computes SipHash-2-4 over the 5-tuple under the given seed, using
// the seed as both halves of the 128-bit SipHash key (fixed-key, per
// spec.md §4.10's "fixed-key" phrasing: the per-rotation seed is the only
// secret input, siphash.Hash's two key halves are derived from it
// identically on every call so validation only needs to recompute, not
// store, the derived key).
func hash(seed uint64, srcIP, dstIP packet.IPv4, srcPort, dstPort uint16) uint64 {
	return siphash.Hash(seed, seed, cookieInput(srcIP, dstIP, srcPort, dstPort))
}

// Generate computes the SYN cookie for an incoming SYN under the current
// seed, with the low 2 bits replaced by mssIdx, per spec.md §4.10.
func Generate(seed uint64, srcIP, dstIP packet.IPv4, srcPort, dstPort uint16, mssIdx uint8) uint32 {
	h := hash(seed, srcIP, dstIP, srcPort, dstPort)
	cookie := uint32(h) &^ 0x3
	return cookie | uint32(mssIdx&0x3)
}

// Validate checks whether cookie (taken from an incoming ACK's ack_seq-1)
// matches the expected cookie for the 5-tuple under either seed slot,
// trying Current first then Previous, per spec.md §4.10's dual-slot
// validation window. It returns the decoded MSS index and whether
// validation succeeded under either slot.
func Validate(ctx Context, cookie uint32, srcIP, dstIP packet.IPv4, srcPort, dstPort uint16) (mssIdx uint8, ok bool) {
	mssIdx = uint8(cookie & 0x3)
	for _, seed := range [2]uint64{ctx.Current, ctx.Previous} {
		expected := Generate(seed, srcIP, dstIP, srcPort, dstPort, mssIdx)
		if expected == cookie {
			return mssIdx, true
		}
	}
	return mssIdx, false
}
