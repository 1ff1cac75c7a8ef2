package kvstore

import (
	"strings"

	"backupd/internal/providers"
)

// CachedStore serves Get for keys under prefix from the freecache-backed
// provider and writes through to the inner store. Keys outside prefix belong
// to other writers and always go to the inner store. A failed write evicts the
// key so the cache never holds a value the inner store rejected.
type CachedStore struct {
	inner  Store
	cache  providers.CacheProviderInterface
	prefix string
}

func NewCachedStore(inner Store, cache providers.CacheProviderInterface, prefix string) *CachedStore {
	return &CachedStore{inner: inner, cache: cache, prefix: prefix}
}

func (s *CachedStore) cached(key string) bool {
	return strings.HasPrefix(key, s.prefix)
}

func (s *CachedStore) Get(key string) (string, bool, error) {
	if !s.cached(key) {
		return s.inner.Get(key)
	}
	if v, ok := s.cache.Get(key); ok {
		return string(v), true, nil
	}
	v, ok, err := s.inner.Get(key)
	if err != nil || !ok {
		return v, ok, err
	}
	s.cache.Set(key, []byte(v))
	return v, true, nil
}

func (s *CachedStore) Set(key, value string) error {
	if !s.cached(key) {
		return s.inner.Set(key, value)
	}
	if err := s.inner.Set(key, value); err != nil {
		s.cache.Del(key)
		return err
	}
	s.cache.Set(key, []byte(value))
	return nil
}

func (s *CachedStore) Remove(key string) error {
	if s.cached(key) {
		s.cache.Del(key)
	}
	return s.inner.Remove(key)
}

func (s *CachedStore) Keys(prefix string) ([]string, error) {
	return s.inner.Keys(prefix)
}

func (s *CachedStore) Close() error {
	return s.inner.Close()
}
