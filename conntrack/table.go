package conntrack

import (
	"time"

	"github.com/edgescrub/scrubcore/shardmap"
)

const (
	numShards   = 8
	maxPerShard = 65536
)

// Table is one worker's private conntrack table, keyed by FiveTuple.
type Table struct {
	m *shardmap.Map
}

// NewTable returns an empty conntrack table.
func NewTable() *Table {
	return &Table{m: shardmap.New(numShards, maxPerShard, time.Minute)}
}

// hash produces a cheap, well-distributed key hash for sharding; it is
// not required to be cryptographically strong, only evenly spread across
// shards.
func hash(f FiveTuple) uint64 {
	h := uint64(f.SrcIP)*1099511628211 + uint64(f.DstIP)
	h = h*1099511628211 + (uint64(f.SrcPort)<<16 | uint64(f.DstPort))
	h = h*1099511628211 + uint64(f.Protocol)
	return h
}

// Lookup checks the forward tuple, then the reverse tuple, returning the
// matching entry and whether it was found in the forward direction (false
// means it matched in reverse, or not at all — check found separately).
func (t *Table) Lookup(tuple FiveTuple) (entry *Entry, forward bool, found bool) {
	if v, ok := t.m.Get(hash(tuple), tuple); ok {
		return v.(*Entry), true, true
	}
	rev := tuple.Reverse()
	if v, ok := t.m.Get(hash(rev), rev); ok {
		return v.(*Entry), false, true
	}
	return nil, false, false
}

// InsertIfAbsent creates a NEW entry for tuple if one does not already
// exist in either direction, returning the (possibly pre-existing) entry.
func (t *Table) InsertIfAbsent(tuple FiveTuple, now time.Time) *Entry {
	if e, _, found := t.Lookup(tuple); found {
		return e
	}
	v := t.m.GetOrCreate(hash(tuple), tuple, func() interface{} {
		return &Entry{LastSeen: now, State: New}
	})
	return v.(*Entry)
}

// Bump advances the eviction generation; call once per sweep interval.
func (t *Table) Bump() { t.m.Bump() }

// Len reports the number of tracked connections.
func (t *Table) Len() int { return t.m.Len() }
