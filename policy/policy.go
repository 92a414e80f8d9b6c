// Package policy holds the two small control-plane-published lookup
// tables that are not prefix-indexed: per-country action policy and the
// destination-port protocol-registration bitmask, per spec.md §3/§6.
package policy

import "github.com/edgescrub/scrubcore/lpm"

// Protocol registration bits for the port-protocol map, per spec.md §6.
const (
	ProtoBitDNS = 1 << iota
	ProtoBitNTP
	ProtoBitSSDP
	ProtoBitMemcached
	ProtoBitChargen
)

// CountryTable maps a two-letter country code to an action. It is
// published wholesale by the control plane; readers never mutate it.
type CountryTable struct {
	Policies map[string]lpm.Action
}

// NewCountryTable returns an empty country policy table.
func NewCountryTable() *CountryTable {
	return &CountryTable{Policies: make(map[string]lpm.Action)}
}

// Lookup returns the configured action for code, and whether one exists.
func (t *CountryTable) Lookup(code string) (lpm.Action, bool) {
	if t == nil {
		return 0, false
	}
	a, ok := t.Policies[code]
	return a, ok
}

// PortProtoMap maps a destination port to a bitmask of registered
// amplification-sensitive protocols, per spec.md §6, used by protocol
// validation and UDP-flood dispatch for non-well-known ports.
type PortProtoMap struct {
	Bits map[uint16]uint8
}

// NewPortProtoMap returns an empty port-protocol map.
func NewPortProtoMap() *PortProtoMap {
	return &PortProtoMap{Bits: make(map[uint16]uint8)}
}

// Lookup returns the registered bitmask for port, or 0 if unregistered.
func (m *PortProtoMap) Lookup(port uint16) uint8 {
	if m == nil {
		return 0
	}
	return m.Bits[port]
}
