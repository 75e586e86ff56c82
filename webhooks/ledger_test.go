package webhooks

import (
	"fmt"
	"testing"
)

func TestMemoryProcessedSet_MarkAndSeen(t *testing.T) {
	set := NewMemoryProcessedSet(10)

	if set.Seen("evt_1") {
		t.Fatalf("expected evt_1 to be unseen")
	}
	if !set.Mark("evt_1") {
		t.Fatalf("expected first mark to claim evt_1")
	}
	if set.Mark("evt_1") {
		t.Fatalf("expected second mark to report already claimed")
	}
	if !set.Seen("evt_1") {
		t.Fatalf("expected evt_1 to be seen after mark")
	}
	if set.Len() != 1 {
		t.Fatalf("expected one member, got %d", set.Len())
	}
}

func TestMemoryProcessedSet_EvictsWhenFull(t *testing.T) {
	set := NewMemoryProcessedSet(3)
	for i := 0; i < 3; i++ {
		set.Mark(fmt.Sprintf("evt_%d", i))
	}
	if set.Len() != 3 {
		t.Fatalf("expected 3 members, got %d", set.Len())
	}

	set.Mark("evt_new")
	if set.Len() != 3 {
		t.Fatalf("expected capacity to hold at 3, got %d", set.Len())
	}
	if !set.Seen("evt_new") {
		t.Fatalf("expected newest member to be present after eviction")
	}
}

func TestMemoryProcessedSet_StaysBoundedUnderChurn(t *testing.T) {
	set := NewMemoryProcessedSet(10)
	for i := 0; i < 100; i++ {
		set.Mark(fmt.Sprintf("evt_%d", i))
	}
	if set.Len() != 10 {
		t.Fatalf("expected 10 members after churn, got %d", set.Len())
	}
}

func TestMemoryProcessedSet_Clear(t *testing.T) {
	set := NewMemoryProcessedSet(10)
	set.Mark("evt_1")
	set.Mark("evt_2")

	set.Clear()
	if set.Len() != 0 {
		t.Fatalf("expected empty set after clear, got %d", set.Len())
	}
	if set.Seen("evt_1") {
		t.Fatalf("expected evt_1 to be forgotten after clear")
	}
	if !set.Mark("evt_1") {
		t.Fatalf("expected evt_1 to be claimable again after clear")
	}
}

func TestMemoryProcessedSet_DefaultCapacity(t *testing.T) {
	set := NewMemoryProcessedSet(0)
	if set.capacity != DefaultProcessedCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultProcessedCapacity, set.capacity)
	}
}
