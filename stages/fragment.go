package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/reputation"
	"github.com/edgescrub/scrubcore/stats"
)

// Fragment implements spec.md §4.6: the scrubber refuses to reassemble,
// so any fragment is dropped, with a distinct reason for a suspicious
// tiny first fragment.
type Fragment struct{}

func (Fragment) Name() string { return "fragment" }

func (Fragment) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if pkt.Whitelisted || !pkt.IsFragment {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	attackType := "fragment"
	if pkt.FragOffset == 0 && pkt.TotalLen < 68 {
		attackType = "tiny_first_fragment"
	}
	Penalize(deps, pkt.SrcIP, reputation.PenaltyFragment, now)
	return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonFragment, AttackType: attackType}
}
