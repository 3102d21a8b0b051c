package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store for tests and single-instance dev runs.
type MemoryStore struct {
	mu   sync.Mutex
	logs map[string]*memoryLog
}

type memoryLog struct {
	hits   []int64
	window time.Duration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string]*memoryLog)}
}

func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time, limit int, window time.Duration) (HitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.logs[key]
	if !ok {
		entry = &memoryLog{}
		s.logs[key] = entry
	}

	var res HitResult
	entry.hits, res = slide(entry.hits, now, limit, window)
	entry.window = window
	return res, nil
}

// Keys returns the stored keys.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.logs))
	for k := range s.logs {
		keys = append(keys, k)
	}
	return keys
}

// Reset drops all counters.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.logs)
}

// Prune removes keys whose newest hit has left its window and returns how many
// were removed.
func (s *MemoryStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, entry := range s.logs {
		if len(entry.hits) == 0 || entry.hits[len(entry.hits)-1] <= now.Add(-entry.window).UnixNano() {
			delete(s.logs, k)
			removed++
		}
	}
	return removed
}

// Maintain implements Maintainer.
func (s *MemoryStore) Maintain(now time.Time) error {
	s.Prune(now)
	return nil
}
