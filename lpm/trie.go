// Package lpm implements longest-prefix-match lookup over 32-bit IPv4
// address spaces. No CIDR/patricia-trie library appears anywhere in the
// retrieved example pack for this class of tool, so the trie is hand
// rolled here as a plain binary trie walked one bit at a time, in the same
// manual, branch-explicit style the teacher uses for its own byte-offset
// parsing helpers.
package lpm

import "github.com/edgescrub/scrubcore/packet"

// node is a binary-trie node. A nil child means "no entry along this
// branch"; value is only meaningful when terminal is true.
type node struct {
	children [2]*node
	terminal bool
	value    interface{}
}

// TrieV4 is an immutable-after-build binary trie over IPv4 prefixes. A new
// TrieV4 is built by the control plane from scratch on every update and
// published wholesale via atomic.Value, so no insert ever needs to be
// visible to a concurrent reader mid-mutation.
type TrieV4 struct {
	root *node
}

// NewTrieV4 returns an empty trie.
func NewTrieV4() *TrieV4 {
	return &TrieV4{root: &node{}}
}

// Insert adds addr/prefixLen -> value. prefixLen must be in [0, 32].
func (t *TrieV4) Insert(addr packet.IPv4, prefixLen int, value interface{}) {
	if prefixLen < 0 {
		prefixLen = 0
	}
	if prefixLen > 32 {
		prefixLen = 32
	}
	cur := t.root
	for i := 0; i < prefixLen; i++ {
		bit := bitAt(addr, i)
		if cur.children[bit] == nil {
			cur.children[bit] = &node{}
		}
		cur = cur.children[bit]
	}
	cur.terminal = true
	cur.value = value
}

// Lookup walks addr's bits from the most significant, returning the value
// stored at the longest matching prefix and true, or (nil, false) if no
// prefix matches — including the default / zero-length prefix if one was
// inserted with prefixLen 0.
func (t *TrieV4) Lookup(addr packet.IPv4) (interface{}, bool) {
	cur := t.root
	var best interface{}
	found := false
	if cur.terminal {
		best, found = cur.value, true
	}
	for i := 0; i < 32; i++ {
		bit := bitAt(addr, i)
		next := cur.children[bit]
		if next == nil {
			break
		}
		cur = next
		if cur.terminal {
			best, found = cur.value, true
		}
	}
	return best, found
}

func bitAt(addr packet.IPv4, i int) int {
	shift := uint(31 - i)
	return int((addr >> shift) & 1)
}
