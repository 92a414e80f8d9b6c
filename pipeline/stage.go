package pipeline

import (
	"time"

	"github.com/edgescrub/scrubcore/packet"
)

// Stage is one verdict-pipeline step. Check never returns an error: per
// spec.md §7, the pipeline never fails a packet for internal reasons, so
// a stage reports only a Result: a Verdict (Continue lets the walk
// proceed) plus the drop reason and attack type that go with it.
type Stage interface {
	Name() string
	Check(pkt *packet.Context, deps *Deps, now time.Time) Result
}

// Pipeline is the statically built, ordered stage chain, assembled once
// at startup as a slice of Stage values — not a registry. Stages hold no
// dependencies of their own; each Check receives them through Deps.
type Pipeline struct {
	stages []Stage
}

// New returns a Pipeline that walks stages in order.
func New(stages []Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run walks pkt through every stage until one returns a terminal verdict
// (anything but Continue), recording stats and an event along the way.
// The conntrack-update stage sits last in stages and returns Continue
// after updating conntrack state; a packet that gets through every stage
// ends the walk with Pass, per spec.md §2.
func (p *Pipeline) Run(pkt *packet.Context, deps *Deps, now time.Time) Result {
	for _, s := range p.stages {
		res := s.Check(pkt, deps, now)
		if res.Verdict == Continue {
			continue
		}
		recordResult(deps, pkt, res, now)
		return res
	}
	res := Result{Verdict: Pass}
	recordResult(deps, pkt, res, now)
	return res
}

func recordResult(deps *Deps, pkt *packet.Context, res Result, now time.Time) {
	bytes := int(pkt.TotalLen)
	switch res.Verdict {
	case Pass, Bypass:
		// Already counted at RX; no further accounting on pass.
	case TX:
		deps.Stats.RecordTX(bytes)
	case Drop:
		deps.Stats.RecordDrop(res.Reason, bytes)
		emitDropEvent(deps, pkt, res, now)
	case Redirect:
		// Host glue owns redirect accounting; nothing to add here.
	}
}

func emitDropEvent(deps *Deps, pkt *packet.Context, res Result, now time.Time) {
	if deps.Ring == nil {
		return
	}
	deps.Ring.Push(buildRecord(pkt, res, now, deps))
}

func attackTypeFor(res Result) string {
	if res.AttackType != "" {
		return res.AttackType
	}
	return res.Reason.String()
}
