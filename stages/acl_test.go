package stages

import (
	"testing"
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/conntrack"
	"github.com/edgescrub/scrubcore/events"
	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/pipeline"
	"github.com/edgescrub/scrubcore/ratelimit"
	"github.com/edgescrub/scrubcore/reputation"
	"github.com/edgescrub/scrubcore/stats"
)

func newTestDeps() *pipeline.Deps {
	return &pipeline.Deps{
		Shared:     pipeline.NewShared(time.Now()),
		RateLimit:  ratelimit.NewTable(),
		Conntrack:  conntrack.NewTable(),
		Reputation: reputation.NewTable(),
		Stats:      &stats.Block{},
		Ring:       events.NewRing(8),
	}
}

func TestACLDisabledAlwaysContinues(t *testing.T) {
	deps := newTestDeps()
	deps.Shared.Config.Replace(map[config.Key]uint64{config.ACLEnabled: 0})

	res := ACL{}.Check(&packet.Context{SrcIP: 1}, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue when ACL is disabled", res.Verdict)
	}
}

func TestACLBlacklistHitDrops(t *testing.T) {
	deps := newTestDeps()
	deps.Shared.Config.Replace(map[config.Key]uint64{config.ACLEnabled: 1})
	tables := deps.Shared.Tables.Load()
	tables.Blacklist.Insert(0x0A000001, 32, struct{}{})

	res := ACL{}.Check(&packet.Context{SrcIP: 0x0A000001}, deps, time.Now())
	if res.Verdict != pipeline.Drop || res.Reason != stats.ReasonBlacklist {
		t.Fatalf("got %+v, want Drop/blacklist", res)
	}
}

func TestACLWhitelistHitMarksPacketAndContinues(t *testing.T) {
	deps := newTestDeps()
	deps.Shared.Config.Replace(map[config.Key]uint64{config.ACLEnabled: 1})
	tables := deps.Shared.Tables.Load()
	tables.Whitelist.Insert(0x0A000002, 32, struct{}{})

	pkt := &packet.Context{SrcIP: 0x0A000002}
	res := ACL{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue for a whitelist hit", res.Verdict)
	}
	if !pkt.Whitelisted {
		t.Fatal("expected pkt.Whitelisted to be set on a whitelist hit")
	}
}

func TestACLWhitelistTakesPrecedenceOverBlacklist(t *testing.T) {
	deps := newTestDeps()
	deps.Shared.Config.Replace(map[config.Key]uint64{config.ACLEnabled: 1})
	tables := deps.Shared.Tables.Load()
	tables.Whitelist.Insert(0x0A000003, 32, struct{}{})
	tables.Blacklist.Insert(0x0A000003, 32, struct{}{})

	pkt := &packet.Context{SrcIP: 0x0A000003}
	res := ACL{}.Check(pkt, deps, time.Now())
	if res.Verdict != pipeline.Continue || !pkt.Whitelisted {
		t.Fatalf("got Verdict=%v Whitelisted=%v, want Continue/true (whitelist checked first)", res.Verdict, pkt.Whitelisted)
	}
}

func TestACLNoMatchContinues(t *testing.T) {
	deps := newTestDeps()
	deps.Shared.Config.Replace(map[config.Key]uint64{config.ACLEnabled: 1})

	res := ACL{}.Check(&packet.Context{SrcIP: 0x0A0000FF}, deps, time.Now())
	if res.Verdict != pipeline.Continue {
		t.Fatalf("Verdict = %v, want Continue for an unlisted source", res.Verdict)
	}
}
