package webhooks

import "sync"

// DefaultProcessedCapacity bounds the in-memory dedup set.
const DefaultProcessedCapacity = 10000

// ProcessedLedger tracks which event ids have already been dispatched.
// Implementations must be safe for concurrent use.
type ProcessedLedger interface {
	Seen(id string) bool
	// Mark records id and reports whether it was newly added; false means
	// another delivery already claimed it.
	Mark(id string) bool
	Clear()
	Len() int
}

// MemoryProcessedSet is a bounded in-memory ProcessedLedger. When the set
// is full an arbitrary member is evicted to make room; insertion order is
// not tracked.
type MemoryProcessedSet struct {
	mu       sync.Mutex
	capacity int
	members  map[string]struct{}
}

// NewMemoryProcessedSet builds a set bounded at capacity. A non-positive
// capacity falls back to DefaultProcessedCapacity.
func NewMemoryProcessedSet(capacity int) *MemoryProcessedSet {
	if capacity <= 0 {
		capacity = DefaultProcessedCapacity
	}
	return &MemoryProcessedSet{
		capacity: capacity,
		members:  make(map[string]struct{}),
	}
}

func (s *MemoryProcessedSet) Seen(id string) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[id]
	return ok
}

func (s *MemoryProcessedSet) Mark(id string) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; ok {
		return false
	}
	for len(s.members) >= s.capacity {
		for member := range s.members {
			delete(s.members, member)
			break
		}
	}
	s.members[id] = struct{}{}
	return true
}

func (s *MemoryProcessedSet) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = make(map[string]struct{})
}

func (s *MemoryProcessedSet) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

var _ ProcessedLedger = (*MemoryProcessedSet)(nil)
