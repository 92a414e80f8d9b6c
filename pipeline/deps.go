package pipeline

import (
	"time"

	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/control"
	"github.com/edgescrub/scrubcore/conntrack"
	"github.com/edgescrub/scrubcore/events"
	"github.com/edgescrub/scrubcore/lpm"
	"github.com/edgescrub/scrubcore/payload"
	"github.com/edgescrub/scrubcore/policy"
	"github.com/edgescrub/scrubcore/ratelimit"
	"github.com/edgescrub/scrubcore/reputation"
	"github.com/edgescrub/scrubcore/signature"
	"github.com/edgescrub/scrubcore/stats"
	"github.com/edgescrub/scrubcore/syncookie"
)

// Shared bundles every globally-shared, control-plane-written table
// behind an atomic Box, per SPEC_FULL §5. One Shared instance is created
// at startup and handed to every Worker; a control.Handle wraps the same
// boxes so control-plane writes are visible to every worker's next read.
type Shared struct {
	Config       *config.Store
	Tables       *control.Box[*lpm.Tables]
	Signatures   *control.Box[*signature.Table]
	PayloadRules *control.Box[*payload.Table]
	Country      *control.Box[*policy.CountryTable]
	PortProto    *control.Box[*policy.PortProtoMap]
	Cookie       *control.Box[syncookie.Context]
	Overrides    *ratelimit.OverrideMap
	Global       *ratelimit.Global
}

// NewShared builds a Shared with every table initialized empty.
func NewShared(now time.Time) *Shared {
	return &Shared{
		Config:       config.NewStore(),
		Tables:       control.NewBox(lpm.NewTables()),
		Signatures:   control.NewBox(signature.NewTable()),
		PayloadRules: control.NewBox(payload.NewTable()),
		Country:      control.NewBox(policy.NewCountryTable()),
		PortProto:    control.NewBox(policy.NewPortProtoMap()),
		Cookie:       control.NewBox(syncookie.Context{}),
		Overrides:    ratelimit.NewOverrideMap(),
		Global:       ratelimit.NewGlobal(0, 0, now),
	}
}

// Deps is everything a single Worker's stages read or mutate: the Shared
// globals plus this worker's private per-core shards and sink.
type Deps struct {
	Shared *Shared

	RateLimit  *ratelimit.Table
	Conntrack  *conntrack.Table
	Reputation *reputation.Table

	Stats *stats.Block
	Ring  *events.Ring
}
