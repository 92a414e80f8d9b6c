package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/stats"
)

// Signature implements spec.md §4.7.
type Signature struct{}

func (Signature) Name() string { return "signature" }

func (Signature) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if pkt.Whitelisted || !deps.Shared.Config.GetBool(config.SignatureEnabled) {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	table := deps.Shared.Signatures.Load()
	if table.Match(pkt) {
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonFingerprint, AttackType: "signature_match"}
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}
