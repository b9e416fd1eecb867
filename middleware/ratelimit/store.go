package ratelimit

import (
	"sync"
	"time"
)

// Store tracks request counts per key within a window that ends at the
// key's reset time.
type Store interface {
	Get(key string) (count int, resetTime time.Time, exists bool)
	Increment(key string, resetTime time.Time) (count int)
	Reset(key string)
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*window
}

type window struct {
	count     int
	resetTime time.Time
}

func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		data: make(map[string]*window),
	}

	go store.cleanup()

	return store
}

func (s *MemoryStore) Get(key string) (count int, resetTime time.Time, exists bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if w, ok := s.data[key]; ok && time.Now().Before(w.resetTime) {
		return w.count, w.resetTime, true
	}

	return 0, time.Time{}, false
}

func (s *MemoryStore) Increment(key string, resetTime time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.data[key]; ok && time.Now().Before(w.resetTime) {
		w.count++
		return w.count
	}

	s.data[key] = &window{
		count:     1,
		resetTime: resetTime,
	}

	return 1
}

func (s *MemoryStore) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := time.Now()

		for key, w := range s.data {
			if now.After(w.resetTime) {
				delete(s.data, key)
			}
		}

		s.mu.Unlock()
	}
}
