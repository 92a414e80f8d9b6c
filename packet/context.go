// Package packet parses raw Ethernet frames into a bounds-checked Context
// that the verdict pipeline reads and, in the SYN-cookie case, rewrites in
// place.
package packet

import "fmt"

// EtherType values recognised by the parser.
const (
	EtherTypeIPv4  = 0x0800
	EtherTypeVLAN  = 0x8100
	EtherTypeQinQ  = 0x88a8
	EtherHeaderLen = 14
	VLANTagLen     = 4
	MaxVLANTags    = 2
)

// IP protocol numbers.
const (
	ProtoICMP = 1
	ProtoTCP  = 6
	ProtoUDP  = 17
	ProtoGRE  = 47
)

// TCP flag bits, matching the single flags octet (byte 13 of the TCP
// header) that carries CWR/ECE/URG/ACK/PSH/RST/SYN/FIN.
const (
	TCPFlagFIN = 1 << 0
	TCPFlagSYN = 1 << 1
	TCPFlagRST = 1 << 2
	TCPFlagPSH = 1 << 3
	TCPFlagACK = 1 << 4
	TCPFlagURG = 1 << 5
	TCPFlagECE = 1 << 6
	TCPFlagCWR = 1 << 7
)

// ICMP types accepted by the ICMP-flood stage.
const (
	ICMPEchoReply      = 0
	ICMPDestUnreach    = 3
	ICMPEchoRequest    = 8
	ICMPTimeExceeded   = 11
)

// IPv4 is a 32-bit address kept in the same bit order as the wire
// representation (i.e. what the spec calls "network byte order"), so that
// it can be fed directly, MSB first, into the LPM trie and the SipHash
// cookie without any further byte swapping.
type IPv4 uint32

// String renders the address in dotted-quad form.
func (a IPv4) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
}

// Context is the parsed, stack-lived view of one inbound frame. Every field
// that can be derived straight from the wire is populated by Parse; every
// offset into Data is validated against len(Data) before Parse returns, so
// stages may re-slice Data[offset:offset+n] without a further bounds check
// as long as n matches the field that bounds it (PayloadLen, etc).
type Context struct {
	// Data is the raw frame buffer. Stages that need to mutate the wire
	// (the SYN-cookie stage) own this slice exclusively for the life of
	// the packet and must re-validate any offset immediately before
	// writing through it, since a later stage never runs after a TX/DROP
	// verdict but earlier computed offsets could in principle be stale
	// if Data were ever replaced — Parse guarantees they are not.
	Data []byte

	VLANTags int

	L3Offset int
	SrcIP    IPv4
	DstIP    IPv4
	Protocol uint8
	TotalLen uint16
	TTL      uint8
	IsFragment    bool
	MoreFragments bool
	FragOffset    uint16

	HasL4         bool
	L4Offset      int
	L4HeaderLen   int
	SrcPort       uint16 // port number, decoded big-endian from the wire
	DstPort       uint16 // port number, decoded big-endian; for ICMP this is the type
	TCPFlags      uint8
	TCPSeq        uint32 // host byte order
	TCPAckSeq     uint32 // host byte order
	ICMPType      uint8
	ICMPCode      uint8

	PayloadOffset int
	PayloadLen    int
	// PayloadFingerprint is the first four payload bytes as a big-endian
	// uint32, or zero when fewer than four bytes are available.
	PayloadFingerprint uint32

	// Whitelisted is set by the ACL stage on a whitelist hit. Every
	// DROP-capable stage after ACL checks this and short-circuits to
	// Continue, so a whitelisted packet still reaches the Conntrack
	// Updater but never picks up a DROP verdict along the way.
	Whitelisted bool
}

// Payload returns the L4 payload slice. It is always within Data's bounds
// because Parse only ever sets PayloadOffset/PayloadLen after checking
// PayloadOffset+PayloadLen <= len(Data).
func (c *Context) Payload() []byte {
	if !c.HasL4 || c.PayloadLen == 0 {
		return nil
	}
	return c.Data[c.PayloadOffset : c.PayloadOffset+c.PayloadLen]
}

// L4Header returns the raw L4 header bytes (TCP/UDP/ICMP), if present.
func (c *Context) L4Header() []byte {
	if !c.HasL4 {
		return nil
	}
	return c.Data[c.L4Offset : c.L4Offset+c.L4HeaderLen]
}
