package conntrack

import (
	"testing"
	"time"

	"github.com/edgescrub/scrubcore/packet"
)

func tuple() FiveTuple {
	return FiveTuple{SrcIP: 0x0A000001, DstIP: 0x0A000002, SrcPort: 1234, DstPort: 80, Protocol: packet.ProtoTCP}
}

func TestInsertIfAbsentCreatesOnce(t *testing.T) {
	tbl := NewTable()
	now := time.Now()
	f := tuple()

	e1 := tbl.InsertIfAbsent(f, now)
	e2 := tbl.InsertIfAbsent(f, now)
	if e1 != e2 {
		t.Fatal("InsertIfAbsent must return the existing entry on second call")
	}
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tbl.Len())
	}
}

func TestLookupFindsReverseDirection(t *testing.T) {
	tbl := NewTable()
	now := time.Now()
	f := tuple()
	tbl.InsertIfAbsent(f, now)

	e, forward, found := tbl.Lookup(f.Reverse())
	if !found {
		t.Fatal("expected reverse-direction lookup to find the entry")
	}
	if forward {
		t.Fatal("expected forward=false for a reverse-direction match")
	}
	if e == nil {
		t.Fatal("expected non-nil entry")
	}
}

func TestLookupForwardDirection(t *testing.T) {
	tbl := NewTable()
	now := time.Now()
	f := tuple()
	tbl.InsertIfAbsent(f, now)

	e, forward, found := tbl.Lookup(f)
	if !found || !forward || e == nil {
		t.Fatalf("Lookup(forward) = (%v, %v, %v), want (non-nil, true, true)", e, forward, found)
	}
}

func TestLookupMiss(t *testing.T) {
	tbl := NewTable()
	if _, _, found := tbl.Lookup(tuple()); found {
		t.Fatal("expected miss on empty table")
	}
}
