package seen

import (
	"context"
	"sync"
	"time"

	"github.com/byigitt/visa-checker/internal/domain/appointment"
)

var _ appointment.SeenStore = (*MemoryStore)(nil)

// MemoryStore is the in-process fallback seen store for deployments without
// Redis. Entries expire after the TTL; a janitor sweeps them out periodically.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

type entry struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory seen store and starts its janitor.
// Call Close to stop the janitor.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*entry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}

	go s.janitor()

	return s
}

// Touch increments and returns the sighting count for a key. An expired entry
// counts as unseen.
func (s *MemoryStore) Touch(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, ok := s.entries[key]
	if !ok || now.After(e.expiresAt) {
		e = &entry{}
		s.entries[key] = e
	}
	e.count++
	e.expiresAt = now.Add(s.ttl)
	return e.count, nil
}

// janitor removes expired entries so the map does not grow without bound.
func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Close stops the janitor.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
