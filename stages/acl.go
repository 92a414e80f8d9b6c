// Package stages implements the fifteen ordered verdict stages spec.md
// §4.2-§4.16 defines, each satisfying pipeline.Stage.
package stages

import (
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/stats"
)

// ACL checks whitelist then blacklist, per spec.md §4.2. A whitelist hit
// marks pkt.Whitelisted so every later DROP-capable stage bypasses its own
// drop decision while the packet still traverses the Conntrack Updater,
// per spec's explicit "whitelisted packets still traverse conntrack but
// bypass DROP stages" decision. A blacklist hit is an unconditional DROP.
type ACL struct{}

func (ACL) Name() string { return "acl" }

func (ACL) Check(pkt *packet.Context, deps *pipeline.Deps, now time.Time) pipeline.Result {
	if !deps.Shared.Config.GetBool(config.ACLEnabled) {
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	tables := deps.Shared.Tables.Load()
	if _, ok := tables.Whitelist.Lookup(pkt.SrcIP); ok {
		pkt.Whitelisted = true
		return pipeline.Result{Verdict: pipeline.Continue}
	}
	if _, ok := tables.Blacklist.Lookup(pkt.SrcIP); ok {
		return pipeline.Result{Verdict: pipeline.Drop, Reason: stats.ReasonBlacklist, AttackType: "blacklist"}
	}
	return pipeline.Result{Verdict: pipeline.Continue}
}
