package session

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryEntries bounds the in-process store.
const DefaultMemoryEntries = 10000

type memoryEntry struct {
	value    []byte
	deadline time.Time
}

// MemoryStorage is an in-process fiber.Storage for single instance
// deployments. The least recently used keys are evicted first once the
// bound is reached.
type MemoryStorage struct {
	mu    sync.Mutex
	cache *lru.Cache[string, memoryEntry]
	now   func() time.Time
}

// NewMemoryStorage creates a memory storage holding up to size keys.
func NewMemoryStorage(size int) (*MemoryStorage, error) {
	if size <= 0 {
		size = DefaultMemoryEntries
	}

	cache, err := lru.New[string, memoryEntry](size)
	if err != nil {
		return nil, err
	}

	return &MemoryStorage{cache: cache, now: time.Now}, nil
}

// Get implements fiber.Storage. Missing and expired keys return nil, nil.
func (s *MemoryStorage) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cache.Get(key)
	if !ok {
		return nil, nil
	}

	if !e.deadline.IsZero() && !s.now().Before(e.deadline) {
		s.cache.Remove(key)
		return nil, nil
	}

	return append([]byte(nil), e.value...), nil
}

// Set implements fiber.Storage. A zero exp keeps the key until evicted.
func (s *MemoryStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}

	e := memoryEntry{value: append([]byte(nil), val...)}
	if exp > 0 {
		e.deadline = s.now().Add(exp)
	}

	s.mu.Lock()
	s.cache.Add(key, e)
	s.mu.Unlock()

	return nil
}

// Delete implements fiber.Storage.
func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	s.cache.Remove(key)
	s.mu.Unlock()

	return nil
}

// Reset implements fiber.Storage.
func (s *MemoryStorage) Reset() error {
	s.mu.Lock()
	s.cache.Purge()
	s.mu.Unlock()

	return nil
}

// Close implements fiber.Storage.
func (s *MemoryStorage) Close() error {
	return nil
}
