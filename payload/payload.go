// Package payload implements the fixed-capacity payload pattern-match
// table, per spec.md §4.8. As a supplement beyond the original's
// in-kernel-only hit counter, each rule's hit count is also exported as a
// local Prometheus gauge, keyed by rule id, the way the teacher exports
// its own local metrics regardless of what a downstream archive later
// does with the data.
package payload

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/edgescrub/scrubcore/packet"
)

// MaxRules bounds the table size, matching spec.md's "size capped, e.g., 8".
const MaxRules = 8

// MaxPatternLen is the fixed pattern/mask length spec.md specifies.
const MaxPatternLen = 16

// Action mirrors spec.md's payload-rule action enumeration.
type Action int

const (
	ActionDrop Action = iota
	ActionRateLimit
	ActionMonitor
)

var ruleHits = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "scrubcore",
	Subsystem: "payload",
	Name:      "rule_hit_count",
	Help:      "Cumulative match count for a payload rule, keyed by rule id.",
}, []string{"rule_id"})

// Rule is one payload pattern rule.
type Rule struct {
	RuleID      uint32
	Pattern     [MaxPatternLen]byte
	Mask        [MaxPatternLen]byte
	PatternLen  int
	Offset      int
	Protocol    uint8 // 0 = any
	DstPort     uint16 // 0 = any
	Action      Action
	HitCount    uint64 // atomically incremented
}

// Table is the active payload-rule set, published wholesale by the
// control plane.
type Table struct {
	Rules []Rule
}

// NewTable returns an empty payload-rule table.
func NewTable() *Table {
	return &Table{}
}

// Match evaluates pkt against every active rule in order. It returns the
// first matching rule's Action and true, or (0, false) if none match.
func (t *Table) Match(pkt *packet.Context) (Action, bool) {
	if t == nil {
		return 0, false
	}
	limit := len(t.Rules)
	if limit > MaxRules {
		limit = MaxRules
	}
	payload := pkt.Payload()
	for i := 0; i < limit; i++ {
		r := &t.Rules[i]
		if matchOne(r, pkt, payload) {
			atomic.AddUint64(&r.HitCount, 1)
			ruleHits.WithLabelValues(strconv.FormatUint(uint64(r.RuleID), 10)).Inc()
			return r.Action, true
		}
	}
	return 0, false
}

func matchOne(r *Rule, pkt *packet.Context, payload []byte) bool {
	if r.Protocol != 0 && r.Protocol != pkt.Protocol {
		return false
	}
	if r.DstPort != 0 && r.DstPort != pkt.DstPort {
		return false
	}
	if r.Offset < 0 || r.PatternLen <= 0 || r.PatternLen > MaxPatternLen {
		return false
	}
	end := r.Offset + r.PatternLen
	if end > len(payload) {
		return false
	}
	for i := 0; i < r.PatternLen; i++ {
		if (payload[r.Offset+i] & r.Mask[i]) != (r.Pattern[i] & r.Mask[i]) {
			return false
		}
	}
	return true
}
