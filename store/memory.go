package store

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sneezeparty/soupy/log"
)

const janitorInterval = 1 * time.Minute

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type inMemoryStore struct {
	entries *xsync.MapOf[string, *memoryEntry]
	stop    chan struct{}
	done    chan struct{}
	log     log.Logger
}

func newInMemory(log log.Logger) External {
	store := &inMemoryStore{
		entries: xsync.NewMapOf[string, *memoryEntry](),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		log:     log,
	}
	go store.runJanitor()
	log.Reportf("using in-process memory for storage")
	return store
}

func (s *inMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	entry, ok := s.entries.Load(key)
	if !ok {
		return nil, ErrNotFound{Key: key}
	}
	if entry.expired(time.Now()) {
		s.entries.Delete(key)
		return nil, ErrNotFound{Key: key}
	}
	return entry.payload, nil
}

func (s *inMemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := &memoryEntry{payload: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.entries.Store(key, entry)
	return nil
}

func (s *inMemoryStore) runJanitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	defer close(s.done)
	for {
		select {
		case now := <-ticker.C:
			s.entries.Range(func(key string, entry *memoryEntry) bool {
				if entry.expired(now) {
					s.entries.Delete(key)
				}
				return true
			})
		case <-s.stop:
			return
		}
	}
}

func (s *inMemoryStore) Shutdown() {
	close(s.stop)
	<-s.done
	s.log.Reportf("shutdown complete")
}
