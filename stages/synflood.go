package stages

import (
	"encoding/binary"
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/conntrack"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/reputation"
	"github.com/edgescrub/scrubcore/stats"
	"github.com/edgescrub/scrubcore/syncookie"
)

// SynFlood implements spec.md §4.10: challenge every pure SYN with a
// cookie-bearing SYN-ACK reflection, validate the returning ACK against
// either seed slot.
type SynFlood struct{}

func (SynFlood) Name() string { return "syn_flood" }

func (SynFlood) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if pkt.Whitelisted || !deps.Shared.Config.GetBool(config.SynCookieEnabled) || pkt.Protocol != packet.ProtoTCP {
		return pipeline.Result{Verdict: pipeline.Continue}
	}

	syn := pkt.TCPFlags&packet.TCPFlagSYN != 0
	ack := pkt.TCPFlags&packet.TCPFlagACK != 0

	switch {
	case syn && !ack:
		return handleSYN(pkt, deps, now)
	case ack && !syn:
		return handleACK(pkt, deps, now)
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}

func handleSYN(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	ctx := deps.Shared.Cookie.Load()
	mssIdx := syncookie.MSSIndex(1460)
	cookie := syncookie.Generate(ctx.Current, pkt.SrcIP, pkt.DstIP, pkt.SrcPort, pkt.DstPort, mssIdx)

	if err := rewriteSynAck(pkt, cookie); err != nil {
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonParseError, AttackType: "syn_cookie_rewrite_failed"}
	}
	deps.Stats.SynCookiesSent++
	return pipeline.Result{Verdict: pipeline.TX, AttackType: "syn_cookie_sent"}
}

func handleACK(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	tuple := conntrack.FiveTuple{SrcIP: pkt.SrcIP, DstIP: pkt.DstIP, SrcPort: pkt.SrcPort, DstPort: pkt.DstPort, Protocol: pkt.Protocol}
	if entry, _, found := deps.Conntrack.Lookup(tuple); found && entry.State == conntrack.Established {
		return pipeline.Result{Verdict: pipeline.Continue}
	}

	cookie := pkt.TCPAckSeq - 1
	ctx := deps.Shared.Cookie.Load()
	_, ok := syncookie.Validate(ctx, cookie, pkt.SrcIP, pkt.DstIP, pkt.SrcPort, pkt.DstPort)
	if !ok {
		if _, _, found := deps.Conntrack.Lookup(tuple); !found {
			deps.Stats.SynCookiesFailed++
			Penalize(deps, pkt.SrcIP, reputation.PenaltySynWithoutAck, now)
			return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonSynFlood, AttackType: "syn_cookie_invalid"}
		}
		return pipeline.Result{Verdict: pipeline.Continue}
	}

	entry := deps.Conntrack.InsertIfAbsent(tuple, now)
	entry.State = conntrack.Established
	entry.CookieVerified = true
	deps.Stats.SynCookiesValidated++
	deps.Stats.ConntrackEstablished++
	return pipeline.Result{Verdict: pipeline.Continue}
}

// rewriteSynAck rewrites pkt.Data in place to form a SYN-ACK reply,
// per spec.md §4.10: swap Ethernet/IP/TCP source and destination, zero
// IP id, set TTL 64, set ack = client_seq+1, seq = cookie, flags =
// SYN|ACK, window 65535, and recompute the IP header checksum. TCP
// checksum is left to hardware offload, per spec.
func rewriteSynAck(pkt *packet.Context, cookie uint32) error {
	data := pkt.Data

	ethOff := 0
	if len(data) < ethOff+14 {
		return errTruncated
	}
	var tmp [6]byte
	copy(tmp[:], data[ethOff:ethOff+6])
	copy(data[ethOff:ethOff+6], data[ethOff+6:ethOff+12])
	copy(data[ethOff+6:ethOff+12], tmp[:])

	l3 := pkt.L3Offset
	if len(data) < l3+20 {
		return errTruncated
	}
	data[l3+4] = 0
	data[l3+5] = 0 // zero IP identification
	data[l3+8] = 64 // TTL
	var ip4 [4]byte
	copy(ip4[:], data[l3+12:l3+16])
	copy(data[l3+12:l3+16], data[l3+16:l3+20])
	copy(data[l3+16:l3+20], ip4[:])

	ihl := int(data[l3]&0x0f) * 4
	data[l3+10] = 0
	data[l3+11] = 0
	checksum := ipv4Checksum(data[l3 : l3+ihl])
	binary.BigEndian.PutUint16(data[l3+10:l3+12], checksum)

	l4 := pkt.L4Offset
	if len(data) < l4+20 {
		return errTruncated
	}
	var port [2]byte
	copy(port[:], data[l4:l4+2])
	copy(data[l4:l4+2], data[l4+2:l4+4])
	copy(data[l4+2:l4+4], port[:])

	binary.BigEndian.PutUint32(data[l4+4:l4+8], cookie)
	binary.BigEndian.PutUint32(data[l4+8:l4+12], pkt.TCPSeq+1)

	data[l4+13] = packet.TCPFlagSYN | packet.TCPFlagACK
	binary.BigEndian.PutUint16(data[l4+14:l4+16], 65535)
	data[l4+16] = 0
	data[l4+17] = 0 // TCP checksum left to hardware offload, per spec
	return nil
}

func ipv4Checksum(header []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(header); i += 2 {
		sum += uint32(header[i])<<8 | uint32(header[i+1])
	}
	if len(header)%2 == 1 {
		sum += uint32(header[len(header)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}

var errTruncated = pipelineParseError{}

type pipelineParseError struct{}

func (pipelineParseError) Error() string { return "syn_flood: buffer too short to rewrite" }
