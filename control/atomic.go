package control

import (
	"sync/atomic"

	"github.com/edgescrub/scrubcore/lpm"
	"github.com/edgescrub/scrubcore/payload"
	"github.com/edgescrub/scrubcore/policy"
	"github.com/edgescrub/scrubcore/signature"
	"github.com/edgescrub/scrubcore/syncookie"
)

// Box is a tiny generic wrapper over sync/atomic.Value that removes the
// interface{} type assertion from every call site, used for every
// globally-shared, control-plane-written table per SPEC_FULL §5.
type Box[T any] struct {
	v atomic.Value
}

// NewBox returns a Box already holding initial, so Load never needs a nil
// check before the first control-plane write.
func NewBox[T any](initial T) *Box[T] {
	b := &Box[T]{}
	b.v.Store(initial)
	return b
}

// Load returns the current value.
func (b *Box[T]) Load() T {
	return b.v.Load().(T)
}

// Store publishes a new value, wholesale.
func (b *Box[T]) Store(val T) {
	b.v.Store(val)
}

type (
	atomicTables     = Box[*lpm.Tables]
	atomicSignatures = Box[*signature.Table]
	atomicPayload    = Box[*payload.Table]
	atomicCountry    = Box[*policy.CountryTable]
	atomicPortProto  = Box[*policy.PortProtoMap]
	atomicCookie     = Box[syncookie.Context]
)
