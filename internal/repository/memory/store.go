package memory

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// store is a TTL map of JSON documents. Values are copied in and out through
// JSON so callers never share memory with stored state, matching the Redis
// backend.
type store struct {
	mu         sync.Mutex
	items      map[string]entry
	ttl        time.Duration
	sweepEvery time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

func newStore(ttl time.Duration) *store {
	return &store{
		items:      make(map[string]entry),
		ttl:        ttl,
		sweepEvery: time.Minute,
		now:        time.Now,
	}
}

func (s *store) get(key string, dst any) (bool, error) {
	s.mu.Lock()
	e, ok := s.items[key]
	if ok && !s.now().Before(e.expiresAt) {
		delete(s.items, key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.data, dst); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *store) set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.items[key] = entry{data: data, expiresAt: now.Add(s.ttl)}
	if now.Sub(s.lastSweep) >= s.sweepEvery {
		s.sweepLocked(now)
		s.lastSweep = now
	}
	return nil
}

func (s *store) del(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// sweepLocked drops expired entries. Writes run it at most once per
// sweepEvery; reads drop expired entries they touch.
func (s *store) sweepLocked(now time.Time) {
	for k, e := range s.items {
		if !now.Before(e.expiresAt) {
			delete(s.items, k)
		}
	}
}
