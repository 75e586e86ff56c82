package subscriptions

import (
	"net/url"
	"sync"
)

const cacheKeyPrefix = "go-onesub::subscription::v1"

// CacheKeyFor returns the deterministic cache key contract for
// subscription reads: go-onesub::subscription::v1::<logical key> with the
// logical key URL-path escaped.
func CacheKeyFor(logical string) string {
	return cacheKeyPrefix + "::" + url.PathEscape(logical)
}

// cacheKeySet remembers which cache keys the service has written so
// ClearCache can delete them without a cache-wide flush operation.
type cacheKeySet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newCacheKeySet() *cacheKeySet {
	return &cacheKeySet{keys: map[string]struct{}{}}
}

func (s *cacheKeySet) remember(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = struct{}{}
}

func (s *cacheKeySet) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
}

func (s *cacheKeySet) drain() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := make([]string, 0, len(s.keys))
	for key := range s.keys {
		drained = append(drained, key)
	}
	s.keys = map[string]struct{}{}
	return drained
}
