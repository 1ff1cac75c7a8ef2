package testutil

import (
	"sort"
	"strings"
	"sync"
	"time"

	"backupd/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Logs {
		if e.Level == level {
			n++
		}
	}
	return n
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
// The zero value is ready to use.
type MockMetrics struct {
	mu            sync.Mutex
	Requests      map[string]int
	CacheHits     int
	CacheMisses   int
	Backups       map[string]int
	BackupSize    int
	HistoryLength int
	Restores      map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Requests: make(map[string]int),
		Backups:  make(map[string]int),
		Restores: make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Requests == nil {
		m.Requests = make(map[string]int)
	}
	m.Requests[endpoint]++
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}
func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}
func (m *MockMetrics) IncBackups(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Backups == nil {
		m.Backups = make(map[string]int)
	}
	m.Backups[result]++
}
func (m *MockMetrics) ObserveBackupDuration(_ time.Duration) {}
func (m *MockMetrics) SetBackupSize(bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BackupSize = bytes
}
func (m *MockMetrics) SetHistoryLength(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HistoryLength = n
}
func (m *MockMetrics) IncRestores(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Restores == nil {
		m.Restores = make(map[string]int)
	}
	m.Restores[result]++
}

// HookStore is an in-memory key-value store whose writes and reads can be
// made to fail. A hook returning a non-nil error aborts the operation.
type HookStore struct {
	mu       sync.Mutex
	Data     map[string]string
	SetFn    func(key, value string) error
	GetFn    func(key string) error
	RemoveFn func(key string) error
	KeysFn   func(prefix string) error
}

func NewHookStore() *HookStore {
	return &HookStore{Data: make(map[string]string)}
}

func (s *HookStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetFn != nil {
		if err := s.GetFn(key); err != nil {
			return "", false, err
		}
	}
	v, ok := s.Data[key]
	return v, ok, nil
}

func (s *HookStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetFn != nil {
		if err := s.SetFn(key, value); err != nil {
			return err
		}
	}
	s.Data[key] = value
	return nil
}

func (s *HookStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RemoveFn != nil {
		if err := s.RemoveFn(key); err != nil {
			return err
		}
	}
	delete(s.Data, key)
	return nil
}

func (s *HookStore) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.KeysFn != nil {
		if err := s.KeysFn(prefix); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0)
	for k := range s.Data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *HookStore) Close() error { return nil }

// Value returns the raw stored value, bypassing hooks.
func (s *HookStore) Value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.Data[key]
	return v, ok
}

// Put stores a value, bypassing hooks.
func (s *HookStore) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Data[key] = value
}

// ManualSchedule records armed jobs and fires them only when told to.
type ManualSchedule struct {
	mu       sync.Mutex
	Interval time.Duration
	Arms     int
	Disarms  int
	armed    bool
	jobs     []func()
}

func (m *ManualSchedule) Arm(interval time.Duration, job func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Interval = interval
	m.Arms++
	m.armed = true
	m.jobs = append(m.jobs, job)
}

func (m *ManualSchedule) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Disarms++
	m.armed = false
}

func (m *ManualSchedule) Armed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// Fire runs the most recently armed job.
func (m *ManualSchedule) Fire() {
	m.mu.Lock()
	if len(m.jobs) == 0 {
		m.mu.Unlock()
		return
	}
	job := m.jobs[len(m.jobs)-1]
	m.mu.Unlock()
	job()
}

// FireAll runs every job ever armed, oldest first, as a late dispatcher would.
func (m *ManualSchedule) FireAll() {
	m.mu.Lock()
	jobs := append([]func(){}, m.jobs...)
	m.mu.Unlock()
	for _, job := range jobs {
		job()
	}
}

// Clock hands out instants from a fixed start, advancing Step per call.
type Clock struct {
	mu   sync.Mutex
	At   time.Time
	Step time.Duration
}

func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{At: start, Step: step}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.At
	c.At = c.At.Add(c.Step)
	return t
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.At = t
}
