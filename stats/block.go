// Package stats holds the per-core Statistics block spec.md §3 defines,
// plus the Prometheus metrics the data plane exports. Each Block is owned
// by exactly one worker goroutine, so its counters are plain uint64s, not
// atomics; aggregation across cores happens only at read time, mirroring
// the teacher's aggregation-at-read pattern in metrics.CacheSizeHistogram.
package stats

// DropReason enumerates every DROP_* reason an event or counter can carry.
type DropReason int

const (
	ReasonNone DropReason = iota
	ReasonParseError
	ReasonBlacklist
	ReasonThreatIntel
	ReasonGeoIP
	ReasonReputation
	ReasonFragment
	ReasonFingerprint
	ReasonPayloadMatch
	ReasonDNSAmp
	ReasonProtoInvalid
	ReasonNTPAmp
	ReasonSSDPAmp
	ReasonMemcachedAmp
	ReasonTCPState
	ReasonSynFlood
	ReasonACKInvalid
	ReasonUDPAmp
	ReasonICMPFlood
	ReasonRateLimit
)

var reasonName = [...]string{
	"none", "parse_error", "blacklist", "threat_intel", "geoip", "reputation",
	"fragment", "fingerprint", "payload_match", "dns_amp", "proto_invalid",
	"ntp_amp", "ssdp_amp", "memcached_amp", "tcp_state", "syn_flood",
	"ack_invalid", "udp_amp", "icmp_flood", "rate_limit",
}

// String renders the drop reason's lowercase wire name.
func (r DropReason) String() string {
	if int(r) >= 0 && int(r) < len(reasonName) {
		return reasonName[r]
	}
	return "unknown"
}

// Block is one worker's monotonic counters.
type Block struct {
	RXPackets uint64
	RXBytes   uint64
	TXPackets uint64
	TXBytes   uint64

	DroppedPackets uint64
	DroppedBytes   uint64

	ByReason [len(reasonName)]uint64

	SynCookiesSent      uint64
	SynCookiesValidated uint64
	SynCookiesFailed    uint64

	ConntrackNew         uint64
	ConntrackEstablished uint64

	GeoViolations       uint64
	ReputationBlocks    uint64
	PayloadViolations   uint64
	ThreatViolations    uint64
	StateViolations     uint64
}

// RecordRX accounts an accepted inbound packet.
func (b *Block) RecordRX(bytes int) {
	b.RXPackets++
	b.RXBytes += uint64(bytes)
}

// RecordTX accounts a transmitted reply (e.g. a SYN-ACK reflection).
func (b *Block) RecordTX(bytes int) {
	b.TXPackets++
	b.TXBytes += uint64(bytes)
}

// RecordDrop accounts a dropped packet under reason.
func (b *Block) RecordDrop(reason DropReason, bytes int) {
	b.DroppedPackets++
	b.DroppedBytes += uint64(bytes)
	if int(reason) < len(b.ByReason) {
		b.ByReason[reason]++
	}
}

// Delta returns cur's counters minus prev's, for turning two cumulative
// aggregate snapshots into the increment a periodic Prometheus publish
// step should add.
func Delta(prev, cur Block) Block {
	var d Block
	d.RXPackets = cur.RXPackets - prev.RXPackets
	d.RXBytes = cur.RXBytes - prev.RXBytes
	d.TXPackets = cur.TXPackets - prev.TXPackets
	d.TXBytes = cur.TXBytes - prev.TXBytes
	d.DroppedPackets = cur.DroppedPackets - prev.DroppedPackets
	d.DroppedBytes = cur.DroppedBytes - prev.DroppedBytes
	for i := range d.ByReason {
		d.ByReason[i] = cur.ByReason[i] - prev.ByReason[i]
	}
	d.SynCookiesSent = cur.SynCookiesSent - prev.SynCookiesSent
	d.SynCookiesValidated = cur.SynCookiesValidated - prev.SynCookiesValidated
	d.SynCookiesFailed = cur.SynCookiesFailed - prev.SynCookiesFailed
	d.ConntrackNew = cur.ConntrackNew - prev.ConntrackNew
	d.ConntrackEstablished = cur.ConntrackEstablished - prev.ConntrackEstablished
	d.GeoViolations = cur.GeoViolations - prev.GeoViolations
	d.ReputationBlocks = cur.ReputationBlocks - prev.ReputationBlocks
	d.PayloadViolations = cur.PayloadViolations - prev.PayloadViolations
	d.ThreatViolations = cur.ThreatViolations - prev.ThreatViolations
	d.StateViolations = cur.StateViolations - prev.StateViolations
	return d
}

// Aggregate sums a slice of per-worker blocks into one totals Block,
// the reader-side responsibility spec.md §3 assigns to aggregation.
func Aggregate(blocks []*Block) Block {
	var total Block
	for _, b := range blocks {
		total.RXPackets += b.RXPackets
		total.RXBytes += b.RXBytes
		total.TXPackets += b.TXPackets
		total.TXBytes += b.TXBytes
		total.DroppedPackets += b.DroppedPackets
		total.DroppedBytes += b.DroppedBytes
		for i := range b.ByReason {
			total.ByReason[i] += b.ByReason[i]
		}
		total.SynCookiesSent += b.SynCookiesSent
		total.SynCookiesValidated += b.SynCookiesValidated
		total.SynCookiesFailed += b.SynCookiesFailed
		total.ConntrackNew += b.ConntrackNew
		total.ConntrackEstablished += b.ConntrackEstablished
		total.GeoViolations += b.GeoViolations
		total.ReputationBlocks += b.ReputationBlocks
		total.PayloadViolations += b.PayloadViolations
		total.ThreatViolations += b.ThreatViolations
		total.StateViolations += b.StateViolations
	}
	return total
}
