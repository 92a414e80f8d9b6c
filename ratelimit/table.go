package ratelimit

import (
	"sync"
	"time"

	"github.com/edgescrub/scrubcore/packet"
	"github.com/edgescrub/scrubcore/shardmap"
)

// shardsPerWorker keeps each worker's private table small; a worker only
// ever touches its own Table, so one shard is enough per worker, but the
// underlying shardmap.Map is still built with a handful of shards in case
// a future worker count benefits from finer locking within a shard.
const shardsPerWorker = 4

// maxPerShard bounds memory for an attack with a huge number of distinct
// source IPs: once exceeded, the stalest-generation entry is evicted.
const maxPerShard = 16384

// Table is one worker's private per-source bucket table. It is not shared
// across workers: spec.md's per-CPU LRU-style table model means each
// worker acts on its own shard without locks against other workers, so
// Table itself only needs to protect against nothing beyond what
// shardmap.Map already guards (defensive, since a single worker never
// calls Table concurrently with itself, but shardmap is reused as-is
// rather than forking a lock-free variant).
type Table struct {
	m *shardmap.Map
}

// NewTable returns an empty per-source bucket table.
func NewTable() *Table {
	return &Table{m: shardmap.New(shardsPerWorker, maxPerShard, time.Minute)}
}

// GetOrCreate returns the bucket for src, creating one primed at
// defaultRatePPS on first sight.
func (t *Table) GetOrCreate(src packet.IPv4, defaultRatePPS uint64, now time.Time) *Bucket {
	v := t.m.GetOrCreate(uint64(src), src, func() interface{} {
		return NewBucket(defaultRatePPS, now)
	})
	return v.(*Bucket)
}

// Bump advances the eviction generation; call once per sweep interval.
func (t *Table) Bump() { t.m.Bump() }

// Len reports the number of tracked sources.
func (t *Table) Len() int { return t.m.Len() }

// OverrideMap is the AdaptiveRateOverride table: source IP -> stricter PPS
// limit installed by GeoIP/payload/threat-intel stages. It is globally
// shared and control-plane-adjacent (written by data-plane stages, read by
// the per-source rate limiter stage), so it uses a plain mutex-guarded map
// rather than per-worker shards: installs are rare relative to reads and a
// single mutex keeps "install if none exists" atomic across workers.
type OverrideMap struct {
	mu   sync.Mutex
	vals map[packet.IPv4]uint64
}

// NewOverrideMap returns an empty override map.
func NewOverrideMap() *OverrideMap {
	return &OverrideMap{vals: make(map[packet.IPv4]uint64)}
}

// InstallIfAbsent sets src's override to ratePPS only if no override
// exists yet, matching spec.md's "if none exists" install semantics for
// threat-intel/GeoIP/payload stages.
func (o *OverrideMap) InstallIfAbsent(src packet.IPv4, ratePPS uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.vals[src]; !ok {
		o.vals[src] = ratePPS
	}
}

// Lookup returns the override for src, if any.
func (o *OverrideMap) Lookup(src packet.IPv4) (uint64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.vals[src]
	return v, ok
}
