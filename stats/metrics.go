package stats

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RXPacketsTotal counts accepted inbound packets across all workers.
	RXPacketsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrubcore_rx_packets_total",
		Help: "Total inbound packets seen by the parser.",
	})
	// TXPacketsTotal counts crafted replies transmitted (e.g. SYN-ACK reflections).
	TXPacketsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrubcore_tx_packets_total",
		Help: "Total packets transmitted by a TX verdict.",
	})
	// DroppedPacketsTotal counts dropped packets, labeled by reason.
	DroppedPacketsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrubcore_dropped_packets_total",
		Help: "Total dropped packets, by drop reason.",
	}, []string{"reason"})
	// SynCookiesSentTotal counts SYN cookies issued.
	SynCookiesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrubcore_syn_cookies_sent_total",
		Help: "Total SYN cookies issued in response to a pure SYN.",
	})
	// SynCookiesValidatedTotal counts ACKs that validated under either seed slot.
	SynCookiesValidatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrubcore_syn_cookies_validated_total",
		Help: "Total SYN cookies that validated on the returning ACK.",
	})
	// SynCookiesFailedTotal counts ACKs that failed cookie validation.
	SynCookiesFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrubcore_syn_cookies_failed_total",
		Help: "Total ACKs rejected for failing SYN-cookie validation.",
	})
	// ConntrackEntries reports the live connection count across all shards.
	ConntrackEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scrubcore_conntrack_entries",
		Help: "Current number of tracked connections across all workers.",
	})
	// ReputationBlockedSources is registered for the number of
	// currently-blocked source IPs; no code in this module sets it, so it
	// stays 0.
	ReputationBlockedSources = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scrubcore_reputation_blocked_sources",
		Help: "Current number of source IPs latched blocked by reputation scoring.",
	})
)

func init() {
	log.Println("Prometheus metrics in scrubcore.stats are registered.")
}

// Publish exports one delta Block's counters (as produced by Delta between
// two successive Aggregate calls) to the package-scope Prometheus metrics
// above. Called periodically by the owner of the worker pool (not on the
// hot path), mirroring the teacher's pattern of updating promauto vars
// from a periodic collection loop rather than on every packet.
func Publish(delta Block) {
	RXPacketsTotal.Add(float64(delta.RXPackets))
	TXPacketsTotal.Add(float64(delta.TXPackets))
	SynCookiesSentTotal.Add(float64(delta.SynCookiesSent))
	SynCookiesValidatedTotal.Add(float64(delta.SynCookiesValidated))
	SynCookiesFailedTotal.Add(float64(delta.SynCookiesFailed))
	for i, name := range reasonName {
		if delta.ByReason[i] > 0 {
			DroppedPacketsTotal.WithLabelValues(name).Add(float64(delta.ByReason[i]))
		}
	}
}
