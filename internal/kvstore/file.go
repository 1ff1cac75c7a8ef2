package kvstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/gofrs/flock"
)

// FileStore keeps the whole store as one JSON object on disk. The file is
// shared with other processes, so every operation re-reads it under an flock
// held on a sibling .lock file, and every mutation is a read-modify-write that
// rewrites the file atomically (temp file, fsync, rename).
type FileStore struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	m      quotaMap
	closed bool
}

func OpenFileStore(path string, quota int) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	s := &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
		m:    newQuotaMap(quota),
	}

	if err := s.readLocked(); err != nil {
		_ = s.lock.Close()
		return nil, err
	}
	if err := s.lock.Unlock(); err != nil {
		_ = s.lock.Close()
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readLocked(); err != nil {
		return "", false, err
	}
	defer s.lock.Unlock()

	v, ok := s.m.data[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeLocked(); err != nil {
		return err
	}
	defer s.lock.Unlock()

	prev, existed, err := s.m.set(key, value)
	if err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		s.m.restore(key, prev, existed)
		return err
	}
	return nil
}

func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeLocked(); err != nil {
		return err
	}
	defer s.lock.Unlock()

	prev, existed := s.m.remove(key)
	if !existed {
		return nil
	}
	if err := s.flush(); err != nil {
		s.m.restore(key, prev, true)
		return err
	}
	return nil
}

func (s *FileStore) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readLocked(); err != nil {
		return nil, err
	}
	defer s.lock.Unlock()

	return s.m.keys(prefix), nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.lock.Close()
}

// readLocked takes the shared file lock and refreshes memory from disk. On
// success the caller owns the file lock and must release it.
func (s *FileStore) readLocked() error {
	if s.closed {
		return ErrClosed
	}
	if err := s.lock.RLock(); err != nil {
		return fmt.Errorf("lock store file %s: %w", s.path, err)
	}
	if err := s.reload(); err != nil {
		_ = s.lock.Unlock()
		return err
	}
	return nil
}

// writeLocked is readLocked with the exclusive file lock.
func (s *FileStore) writeLocked() error {
	if s.closed {
		return ErrClosed
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock store file %s: %w", s.path, err)
	}
	if err := s.reload(); err != nil {
		_ = s.lock.Unlock()
		return err
	}
	return nil
}

// reload replaces the in-memory map with the file's current content. A missing
// or empty file is an empty store.
func (s *FileStore) reload() error {
	data := make(map[string]string)

	raw, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("decode store file %s: %w", s.path, err)
		}
	}
	s.m.load(data)
	return nil
}

func (s *FileStore) flush() error {
	jsonData, err := json.Marshal(s.m.data)
	if err != nil {
		return err
	}

	tmpFile := s.path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(jsonData)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, s.path)
}
