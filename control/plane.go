// Package control models the control-plane -> data-plane boundary as a Go
// interface, per spec.md §6 and SPEC_FULL §6: config writes, LPM table
// bulk loads/updates, signature/payload-rule array replacement, country
// and port-protocol policy writes, and SYN-cookie seed rotation. The
// actual transport (gRPC, shared memory) a production deployment would
// use is an out-of-scope external collaborator; this package ships only
// an in-process reference Plane sufficient for tests and local operation.
package control

import (
	"github.com/edgescrub/scrubcore/config"
	"github.com/edgescrub/scrubcore/lpm"
	"github.com/edgescrub/scrubcore/payload"
	"github.com/edgescrub/scrubcore/policy"
	"github.com/edgescrub/scrubcore/signature"
	"github.com/edgescrub/scrubcore/syncookie"
)

// Plane is everything the control plane can push into a running data
// plane.
type Plane interface {
	SetConfig(values map[config.Key]uint64)
	ReplaceTables(t *lpm.Tables)
	ReplaceSignatures(t *signature.Table)
	ReplacePayloadRules(t *payload.Table)
	ReplaceCountryPolicy(t *policy.CountryTable)
	ReplacePortProtoMap(m *policy.PortProtoMap)
	RotateSeed(newSeed uint64)
}

// Handle is an in-process reference Plane implementation: every Replace*
// call does an atomic.Value-style publish-by-replace against the fields a
// Deps struct (see pipeline.Deps) was built from. It is intentionally
// thin — production control-plane transports decode their own wire format
// and call these same setters.
type Handle struct {
	cfg        *config.Store
	tables     *atomicTables
	signatures *atomicSignatures
	payload    *atomicPayload
	country    *atomicCountry
	portProto  *atomicPortProto
	cookie     *atomicCookie
}

// NewHandle wires a Handle to the live stores a pipeline.Deps was built
// with, so writes through Handle are immediately visible to workers on
// their next read.
func NewHandle(cfg *config.Store, tables *atomicTables, sig *atomicSignatures, pr *atomicPayload, country *atomicCountry, pp *atomicPortProto, cookie *atomicCookie) *Handle {
	return &Handle{cfg: cfg, tables: tables, signatures: sig, payload: pr, country: country, portProto: pp, cookie: cookie}
}

func (h *Handle) SetConfig(values map[config.Key]uint64) { h.cfg.Replace(values) }
func (h *Handle) ReplaceTables(t *lpm.Tables)             { h.tables.Store(t) }
func (h *Handle) ReplaceSignatures(t *signature.Table)    { h.signatures.Store(t) }
func (h *Handle) ReplacePayloadRules(t *payload.Table)    { h.payload.Store(t) }
func (h *Handle) ReplaceCountryPolicy(t *policy.CountryTable) { h.country.Store(t) }
func (h *Handle) ReplacePortProtoMap(m *policy.PortProtoMap)  { h.portProto.Store(m) }
func (h *Handle) RotateSeed(newSeed uint64) {
	cur := h.cookie.Load()
	h.cookie.Store(cur.Rotate(newSeed))
}
