package packet

import (
	"encoding/binary"
	"errors"
)

// Parse errors. The pipeline treats any non-nil error identically: count it,
// emit a single DROP_PARSE_ERROR event, drop the frame. The distinct values
// exist only so tests and logs can tell failures apart.
var (
	ErrTruncatedEthernet = errors.New("packet: truncated ethernet header")
	ErrTruncatedVLAN     = errors.New("packet: truncated vlan tag")
	ErrTooManyVLANTags   = errors.New("packet: more than two vlan tags")
	ErrNotIPv4           = errors.New("packet: not ipv4")
	ErrTruncatedIPv4     = errors.New("packet: truncated ipv4 header")
	ErrBadIHL            = errors.New("packet: ip header length below minimum")
	ErrTruncatedTCP      = errors.New("packet: truncated tcp header")
	ErrBadTCPOffset      = errors.New("packet: tcp data offset below minimum")
	ErrTruncatedUDP      = errors.New("packet: truncated udp header")
	ErrTruncatedICMP     = errors.New("packet: truncated icmp header")
)

// Parse builds a Context from a raw Ethernet frame. Every dereference below
// is preceded by a length check against len(frame); a failed check returns
// immediately with the corresponding error and a context is never returned
// on error.
func Parse(frame []byte) (*Context, error) {
	if len(frame) < EtherHeaderLen {
		return nil, ErrTruncatedEthernet
	}

	ethType := binary.BigEndian.Uint16(frame[12:14])
	offset := EtherHeaderLen

	vlanTags := 0
	for ethType == EtherTypeVLAN || ethType == EtherTypeQinQ {
		vlanTags++
		if vlanTags > MaxVLANTags {
			return nil, ErrTooManyVLANTags
		}
		if len(frame) < offset+VLANTagLen {
			return nil, ErrTruncatedVLAN
		}
		ethType = binary.BigEndian.Uint16(frame[offset+2 : offset+4])
		offset += VLANTagLen
	}

	if ethType != EtherTypeIPv4 {
		return nil, ErrNotIPv4
	}

	return parseIPv4(frame, offset, vlanTags)
}

func parseIPv4(frame []byte, l3Offset, vlanTags int) (*Context, error) {
	if len(frame) < l3Offset+20 {
		return nil, ErrTruncatedIPv4
	}

	iph := frame[l3Offset:]
	ihl := int(iph[0] & 0x0f)
	if ihl < 5 {
		return nil, ErrBadIHL
	}
	hdrLen := ihl * 4
	if len(frame) < l3Offset+hdrLen {
		return nil, ErrTruncatedIPv4
	}

	totalLen := binary.BigEndian.Uint16(iph[2:4])
	ttl := iph[8]
	protocol := iph[9]
	srcIP := IPv4(binary.BigEndian.Uint32(iph[12:16]))
	dstIP := IPv4(binary.BigEndian.Uint32(iph[16:20]))

	fragField := binary.BigEndian.Uint16(iph[6:8])
	moreFragments := fragField&0x2000 != 0
	fragOffset := fragField & 0x1fff
	isFragment := moreFragments || fragOffset != 0

	ctx := &Context{
		Data:          frame,
		VLANTags:      vlanTags,
		L3Offset:      l3Offset,
		SrcIP:         srcIP,
		DstIP:         dstIP,
		Protocol:      protocol,
		TotalLen:      totalLen,
		TTL:           ttl,
		IsFragment:    isFragment,
		MoreFragments: moreFragments,
		FragOffset:    fragOffset,
	}

	l4Offset := l3Offset + hdrLen
	ctx.L4Offset = l4Offset

	// Only the first fragment (offset 0) carries an L4 header worth
	// parsing; later fragments are returned successfully with L4 unset.
	if fragOffset != 0 {
		return ctx, nil
	}

	switch protocol {
	case ProtoTCP:
		if err := parseTCP(ctx, frame, l4Offset); err != nil {
			return nil, err
		}
	case ProtoUDP:
		if err := parseUDP(ctx, frame, l4Offset); err != nil {
			return nil, err
		}
	case ProtoICMP:
		if err := parseICMP(ctx, frame, l4Offset); err != nil {
			return nil, err
		}
	default:
		// Unregistered L4 protocol (e.g. GRE): L3-only stages still run.
	}

	return ctx, nil
}

func parseTCP(ctx *Context, frame []byte, off int) error {
	if len(frame) < off+20 {
		return ErrTruncatedTCP
	}
	th := frame[off:]
	dataOffset := int(th[12]>>4) * 4
	if dataOffset < 20 {
		return ErrBadTCPOffset
	}
	if len(frame) < off+dataOffset {
		return ErrTruncatedTCP
	}

	ctx.HasL4 = true
	ctx.L4HeaderLen = dataOffset
	ctx.SrcPort = binary.BigEndian.Uint16(th[0:2])
	ctx.DstPort = binary.BigEndian.Uint16(th[2:4])
	ctx.TCPSeq = binary.BigEndian.Uint32(th[4:8])
	ctx.TCPAckSeq = binary.BigEndian.Uint32(th[8:12])
	ctx.TCPFlags = th[13]

	setPayload(ctx, frame, off+dataOffset)
	return nil
}

func parseUDP(ctx *Context, frame []byte, off int) error {
	if len(frame) < off+8 {
		return ErrTruncatedUDP
	}
	uh := frame[off:]
	ctx.HasL4 = true
	ctx.L4HeaderLen = 8
	ctx.SrcPort = binary.BigEndian.Uint16(uh[0:2])
	ctx.DstPort = binary.BigEndian.Uint16(uh[2:4])

	setPayload(ctx, frame, off+8)
	return nil
}

func parseICMP(ctx *Context, frame []byte, off int) error {
	if len(frame) < off+8 {
		return ErrTruncatedICMP
	}
	ih := frame[off:]
	ctx.HasL4 = true
	ctx.L4HeaderLen = 8
	ctx.ICMPType = ih[0]
	ctx.ICMPCode = ih[1]
	// Synthesize a "destination port" equal to the ICMP type so that
	// port-keyed tables (port-protocol map, signatures) can treat ICMP
	// uniformly with TCP/UDP.
	ctx.DstPort = uint16(ih[0])

	setPayload(ctx, frame, off+8)
	return nil
}

func setPayload(ctx *Context, frame []byte, payloadOffset int) {
	ctx.PayloadOffset = payloadOffset
	if payloadOffset >= len(frame) {
		ctx.PayloadLen = 0
		return
	}
	ctx.PayloadLen = len(frame) - payloadOffset
	if ctx.PayloadLen >= 4 {
		ctx.PayloadFingerprint = binary.BigEndian.Uint32(frame[payloadOffset : payloadOffset+4])
	}
	// Per spec boundary case: a 3-byte payload still "succeeds" but the
	// fingerprint is treated as zero (PayloadFingerprint's zero value).
}
