// Package escalation centralizes the escalation-level-driven threshold
// tables consulted by multiple stages (threat intel confidence, TCP-state
// violation count; the reputation decay rate kept here is consulted by no
// stage), so the level -> threshold
// mapping lives in one place instead of being inlined per stage.
package escalation

import "github.com/edgescrub/scrubcore/config"

// ThreatDropConfidence returns the minimum threat-intel confidence that
// triggers a DROP at the given escalation level, per spec.md §4.3.
func ThreatDropConfidence(level uint64) int {
	switch level {
	case config.EscalationHigh:
		return 50
	case config.EscalationCritical:
		return 30
	default: // LOW, MEDIUM
		return 80
	}
}

// ThreatRateLimitConfidence returns the minimum confidence that installs
// an adaptive rate-limit override, per spec.md §4.3.
func ThreatRateLimitConfidence(level uint64) int {
	switch level {
	case config.EscalationHigh:
		return 30
	case config.EscalationCritical:
		return 10
	default:
		return 50
	}
}

// TCPStateViolationThreshold returns how many accumulated violations a
// conntrack entry tolerates before DROP (TCP_STATE) fires, per spec.md §4.9.
func TCPStateViolationThreshold(level uint64) uint32 {
	if level >= config.EscalationHigh {
		return 1
	}
	return 3
}

// ReputationDecayPerSecond returns the per-second reputation score decay:
// the configured value if nonzero, else 5. No stage calls it:
// reputation.Entry.Decay always applies the fixed DecayPerSecond, so a
// configured ReputationDecayPerSecond does not change scoring.
func ReputationDecayPerSecond(configured uint64) int {
	if configured > 0 {
		return int(configured)
	}
	return 5
}
