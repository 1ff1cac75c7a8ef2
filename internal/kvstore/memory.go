package kvstore

import "sync"

// MemoryStore keeps everything in process memory. With a quota it behaves like
// a browser's local storage: writes past the quota fail with ErrQuotaExceeded.
type MemoryStore struct {
	mu     sync.RWMutex
	m      quotaMap
	closed bool
}

func NewMemoryStore(quota int) *MemoryStore {
	return &MemoryStore{m: newQuotaMap(quota)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.m.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	_, _, err := s.m.set(key, value)
	return err
}

func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.m.remove(key)
	return nil
}

func (s *MemoryStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.m.keys(prefix), nil
}

// Used reports the bytes currently counted against the quota.
func (s *MemoryStore) Used() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.used
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
