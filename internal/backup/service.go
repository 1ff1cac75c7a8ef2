// Package backup keeps a bounded, newest-first history of snapshots of the
// application's datasets and restores any of them on request.
//
// Storage layout under the configured key prefix (default "backup."):
//
//	latest      newest snapshot, written before rotation starts
//	slot.<i>    snapshot at history position i
//	history     JSON array of HistoryEntry, newest first
//	preRestore  live state captured right before the last restore
package backup

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"backupd/internal/kvstore"
	"backupd/internal/providers"
	"backupd/internal/structures"
)

type BackupServiceInterface interface {
	Initialize(prefs Preferences)
	UpdatePreferences(prefs Preferences)
	Start()
	Stop()
	Status() Status
	CreateBackup() bool
	GetLatestBackup() *Snapshot
	GetBackupHistory() []HistoryEntry
	GetBackupByTimestamp(timestamp string) *Snapshot
	RestoreBackup(timestamp string) RestoreResult
	UndoRestore() RestoreResult
	GetPreRestoreBackup() *Snapshot
	ClearBackups() bool
	GetBackupStats() Stats
}

// Service is the single owner of the backup schedule and the backup key space.
// Every public method holds mu for its whole run, so a scheduled capture never
// interleaves with a restore or a clear.
type Service struct {
	mu       sync.Mutex
	store    kvstore.Store
	schedule Schedule
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface

	keys       keySpace
	dataPrefix string
	datasets   []Dataset
	version    string
	ring       *ring

	now       func() time.Time
	lastStamp time.Time

	prefs      Preferences
	running    bool
	generation uint64
}

func NewService(conf *structures.Config, store kvstore.Store, schedule Schedule, logger providers.Logger, metrics providers.MetricsProviderInterface) (*Service, error) {
	if store == nil {
		return nil, errors.New("backup: nil store")
	}
	if conf.Backup.MaxBackups < 1 {
		return nil, fmt.Errorf("backup: maxBackups must be at least 1, got %d", conf.Backup.MaxBackups)
	}
	if conf.Backup.KeyPrefix == "" {
		return nil, errors.New("backup: empty key prefix")
	}

	datasets := make([]Dataset, 0, len(conf.Backup.Datasets))
	for _, ds := range conf.Backup.Datasets {
		if reservedDatasetName(ds.Name) {
			return nil, fmt.Errorf("backup: dataset name %q is reserved", ds.Name)
		}
		key := conf.Backup.DataPrefix + ds.Name
		if strings.HasPrefix(key, conf.Backup.KeyPrefix) {
			return nil, fmt.Errorf("backup: dataset key %q lies inside the backup namespace %q", key, conf.Backup.KeyPrefix)
		}
		datasets = append(datasets, Dataset{Name: ds.Name, Kind: DatasetKind(ds.Kind)})
	}

	keys := keySpace{prefix: conf.Backup.KeyPrefix}
	s := &Service{
		store:      store,
		schedule:   schedule,
		logger:     logger,
		metrics:    metrics,
		keys:       keys,
		dataPrefix: conf.Backup.DataPrefix,
		datasets:   datasets,
		version:    conf.Backup.Version,
		ring:       &ring{store: store, keys: keys, capacity: conf.Backup.MaxBackups},
		now:        time.Now,
		prefs:      Preferences{BackupFrequency: Daily},
	}
	s.seedLastStamp()
	return s, nil
}

// seedLastStamp keeps timestamps increasing across restarts even if the clock
// went backwards while the process was down.
func (s *Service) seedLastStamp() {
	history, _ := s.ring.history()
	if len(history) > 0 {
		if t, err := time.Parse(TimestampLayout, history[0].Timestamp); err == nil {
			s.lastStamp = t
		}
	}
	if latest := s.latestLocked(); latest != nil {
		if t, err := time.Parse(TimestampLayout, latest.Timestamp); err == nil && t.After(s.lastStamp) {
			s.lastStamp = t
		}
	}
	s.metrics.SetHistoryLength(len(history))
}

// Initialize applies the host's preferences. Calling it again reconfigures the
// same service; it never leaves two schedules armed.
func (s *Service) Initialize(prefs Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs = prefs.normalize()
	if s.prefs.AutoBackup {
		s.logger.Infof(providers.TypeBackup, "Automatic backups enabled (%s)", s.prefs.BackupFrequency)
		s.startLocked()
		return
	}
	s.logger.Infof(providers.TypeBackup, "Automatic backups disabled")
	s.stopLocked()
}

// UpdatePreferences starts, stops or re-arms the schedule depending on what changed.
func (s *Service) UpdatePreferences(prefs Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.prefs
	s.prefs = prefs.normalize()

	switch {
	case !old.AutoBackup && s.prefs.AutoBackup:
		s.logger.Infof(providers.TypeBackup, "Automatic backups turned on (%s)", s.prefs.BackupFrequency)
		s.startLocked()
	case old.AutoBackup && !s.prefs.AutoBackup:
		s.logger.Infof(providers.TypeBackup, "Automatic backups turned off")
		s.stopLocked()
	case s.prefs.AutoBackup && old.BackupFrequency != s.prefs.BackupFrequency:
		s.logger.Infof(providers.TypeBackup, "Backup frequency changed %s -> %s", old.BackupFrequency, s.prefs.BackupFrequency)
		s.startLocked()
	}
}

// Start captures once and arms the schedule at the current frequency.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked()
}

// Stop disarms the schedule. It is safe to call when not running.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Service) startLocked() {
	interval := s.prefs.BackupFrequency.Interval()

	s.generation++
	gen := s.generation
	s.schedule.Disarm()
	s.running = true

	s.createBackupLocked()
	s.schedule.Arm(interval, func() { s.tick(gen) })
	s.logger.Infof(providers.TypeBackup, "Backup schedule armed every %s", interval)
}

func (s *Service) stopLocked() {
	s.generation++
	s.schedule.Disarm()
	if s.running {
		s.logger.Infof(providers.TypeBackup, "Backup schedule disarmed")
	}
	s.running = false
}

// tick runs a scheduled capture unless the schedule it came from was replaced.
func (s *Service) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || gen != s.generation {
		return
	}
	s.createBackupLocked()
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:         s.running,
		AutoBackup:      s.prefs.AutoBackup,
		BackupFrequency: s.prefs.BackupFrequency,
		Interval:        s.prefs.BackupFrequency.Interval().String(),
	}
}

// CreateBackup captures every dataset and records it as the newest backup.
// It reports false instead of failing when the store rejects the capture.
func (s *Service) CreateBackup() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createBackupLocked()
}

func (s *Service) createBackupLocked() bool {
	start := time.Now()
	ok := s.captureAndRotate()
	s.metrics.ObserveBackupDuration(time.Since(start))
	if ok {
		s.metrics.IncBackups(providers.ResultSuccess)
	} else {
		s.metrics.IncBackups(providers.ResultFailure)
	}
	return ok
}

func (s *Service) captureAndRotate() bool {
	snap, err := s.capture(s.nextTimestamp())
	if err != nil {
		s.logger.Errorf(providers.TypeBackup, "Error while reading datasets: %s", err)
		return false
	}

	encoded, err := json.Marshal(snap)
	if err != nil {
		s.logger.Errorf(providers.TypeBackup, "Error while serializing backup: %s", err)
		return false
	}
	payload := string(encoded)

	if err := s.store.Set(s.keys.latest(), payload); err != nil {
		s.logger.Errorf(providers.TypeBackup, "Error while writing latest backup: %s", err)
		return false
	}
	s.metrics.SetBackupSize(len(payload))

	s.rotate(snap, payload)
	s.logger.Infof(providers.TypeBackup, "Backup %s created (%d bytes)", snap.Timestamp, len(payload))
	return true
}

// rotate never fails the capture: latest is already durable and the next
// successful rotation rewrites the history.
func (s *Service) rotate(snap *Snapshot, payload string) {
	prev, err := s.ring.history()
	if err != nil {
		s.logger.Warnf(providers.TypeBackup, "Backup history unreadable, starting a new one: %s", err)
	}

	entry := HistoryEntry{
		Timestamp: snap.Timestamp,
		Size:      len(payload),
		Version:   snap.Version,
		Checksum:  checksum(payload),
	}
	next, err := s.ring.push(prev, entry, payload)
	if err != nil {
		s.logger.Warnf(providers.TypeBackup, "Backup rotation incomplete for %s: %s", snap.Timestamp, err)
	}
	s.metrics.SetHistoryLength(len(next))
}

// nextTimestamp returns the current instant at millisecond precision, bumped
// past the previous capture so history timestamps stay strictly increasing.
func (s *Service) nextTimestamp() string {
	t := s.now().UTC().Truncate(time.Millisecond)
	if !t.After(s.lastStamp) {
		t = s.lastStamp.Add(time.Millisecond)
	}
	s.lastStamp = t
	return formatTimestamp(t)
}

// capture reads every dataset. Absent datasets are captured as their empty
// value; malformed ones as a JSON string holding their exact text.
func (s *Service) capture(timestamp string) (*Snapshot, error) {
	snap := &Snapshot{
		Timestamp: timestamp,
		Version:   s.version,
		Data:      make(map[string]json.RawMessage, len(s.datasets)),
	}
	for _, ds := range s.datasets {
		raw, ok, err := s.store.Get(s.dataPrefix + ds.Name)
		if err != nil {
			return nil, fmt.Errorf("read dataset %s: %w", ds.Name, err)
		}
		if !ok {
			snap.Data[ds.Name] = emptyValue(ds.Kind)
			continue
		}
		if !json.Valid([]byte(raw)) {
			s.logger.Warnf(providers.TypeBackup, "Dataset %s holds malformed JSON, capturing its raw text", ds.Name)
			snap.Data[ds.Name] = preserveMalformed(raw)
			continue
		}
		snap.Data[ds.Name] = json.RawMessage(raw)
	}
	return snap, nil
}

func emptyValue(kind DatasetKind) json.RawMessage {
	if kind == KindObject {
		return json.RawMessage("{}")
	}
	return json.RawMessage("[]")
}

// GetLatestBackup returns the newest snapshot, or nil if there is none or it
// cannot be decoded.
func (s *Service) GetLatestBackup() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestLocked()
}

func (s *Service) latestLocked() *Snapshot {
	return s.readSnapshot(s.keys.latest())
}

// GetPreRestoreBackup returns the state captured before the last restore.
func (s *Service) GetPreRestoreBackup() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readSnapshot(s.keys.preRestore())
}

func (s *Service) readSnapshot(key string) *Snapshot {
	raw, ok, err := s.store.Get(key)
	if err != nil {
		s.logger.Errorf(providers.TypeBackup, "Error while reading %s: %s", key, err)
		return nil
	}
	if !ok {
		return nil
	}
	snap, err := decodeSnapshot(raw)
	if err != nil {
		s.logger.Warnf(providers.TypeBackup, "Ignoring undecodable %s: %s", key, err)
		return nil
	}
	return snap
}

// GetBackupHistory returns retained backups newest first. It is never nil.
func (s *Service) GetBackupHistory() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyLocked()
}

func (s *Service) historyLocked() []HistoryEntry {
	history, err := s.ring.history()
	if err != nil {
		s.logger.Warnf(providers.TypeBackup, "Backup history unreadable: %s", err)
	}
	return history
}

// GetBackupByTimestamp returns the retained snapshot taken at timestamp.
func (s *Service) GetBackupByTimestamp(timestamp string) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(timestamp)
}

// lookupLocked reads the slot matching the history position of timestamp and
// checks the payload really is that snapshot. A partial rotation can leave a
// slot holding a neighbour's payload; the other slots and latest are then
// searched before giving up.
func (s *Service) lookupLocked(timestamp string) *Snapshot {
	history := s.historyLocked()
	idx := -1
	for i, e := range history {
		if e.Timestamp == timestamp {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	if snap := s.verifiedSlot(idx, timestamp, history[idx].Checksum); snap != nil {
		return snap
	}
	s.logger.Warnf(providers.TypeBackup, "Slot %d does not hold backup %s, searching other slots", idx, timestamp)

	for i := 0; i < s.ring.capacity; i++ {
		if i == idx {
			continue
		}
		if snap := s.verifiedSlot(i, timestamp, ""); snap != nil {
			return snap
		}
	}
	if latest := s.latestLocked(); latest != nil && latest.Timestamp == timestamp {
		return latest
	}
	return nil
}

func (s *Service) verifiedSlot(i int, timestamp, sum string) *Snapshot {
	raw, ok, err := s.ring.slot(i)
	if err != nil || !ok {
		return nil
	}
	if sum != "" && checksum(raw) != sum {
		return nil
	}
	snap, err := decodeSnapshot(raw)
	if err != nil || snap.Timestamp != timestamp {
		return nil
	}
	return snap
}

// RestoreBackup writes the datasets of the backup taken at timestamp (or of the
// latest backup when timestamp is empty) back into the store. The live state is
// saved as the pre-restore snapshot first.
func (s *Service) RestoreBackup(timestamp string) RestoreResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap *Snapshot
	if timestamp == "" {
		snap = s.latestLocked()
		if snap == nil {
			return s.restoreFailed(ErrNoBackup)
		}
	} else {
		snap = s.lookupLocked(timestamp)
		if snap == nil {
			return s.restoreFailed(fmt.Errorf("%w: %s", ErrNotFound, timestamp))
		}
	}

	live, payload, err := s.captureLive()
	if err != nil {
		return s.restoreFailed(fmt.Errorf("save pre-restore snapshot: %w", err))
	}
	if err := s.store.Set(s.keys.preRestore(), payload); err != nil {
		return s.restoreFailed(fmt.Errorf("save pre-restore snapshot: %w", err))
	}

	counts, err := s.applyOrRollback(snap, live)
	if err != nil {
		return s.restoreFailed(err)
	}

	s.logger.Infof(providers.TypeRestore, "Restored backup %s", snap.Timestamp)
	s.metrics.IncRestores(providers.ResultSuccess)
	return RestoreResult{Success: true, Timestamp: snap.Timestamp, Version: snap.Version, Counts: counts}
}

// UndoRestore puts back the pre-restore snapshot. The state it replaces becomes
// the new pre-restore snapshot, so an undo can itself be undone.
func (s *Service) UndoRestore() RestoreResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevRaw, ok, err := s.store.Get(s.keys.preRestore())
	if err != nil {
		return s.restoreFailed(fmt.Errorf("read pre-restore snapshot: %w", err))
	}
	if !ok {
		return s.restoreFailed(ErrNoPreRestore)
	}
	pre, err := decodeSnapshot(prevRaw)
	if err != nil {
		s.logger.Warnf(providers.TypeRestore, "Ignoring undecodable pre-restore snapshot: %s", err)
		return s.restoreFailed(ErrNoPreRestore)
	}

	live, payload, err := s.captureLive()
	if err != nil {
		return s.restoreFailed(fmt.Errorf("save pre-restore snapshot: %w", err))
	}
	if err := s.store.Set(s.keys.preRestore(), payload); err != nil {
		return s.restoreFailed(fmt.Errorf("save pre-restore snapshot: %w", err))
	}

	counts, err := s.applyOrRollback(pre, live)
	if err != nil {
		if rerr := s.store.Set(s.keys.preRestore(), prevRaw); rerr != nil {
			s.logger.Errorf(providers.TypeRestore, "Error while putting back pre-restore snapshot: %s", rerr)
		}
		return s.restoreFailed(err)
	}

	s.logger.Infof(providers.TypeRestore, "Undid restore, back to state of %s", pre.Timestamp)
	s.metrics.IncRestores(providers.ResultSuccess)
	return RestoreResult{Success: true, Timestamp: pre.Timestamp, Version: pre.Version, Counts: counts}
}

func (s *Service) restoreFailed(err error) RestoreResult {
	s.logger.Warnf(providers.TypeRestore, "Restore failed: %s", err)
	s.metrics.IncRestores(providers.ResultFailure)
	return failedRestore(err)
}

// captureLive snapshots the current datasets without touching the history.
func (s *Service) captureLive() (*Snapshot, string, error) {
	snap, err := s.capture(formatTimestamp(s.now()))
	if err != nil {
		return nil, "", err
	}
	encoded, err := json.Marshal(snap)
	if err != nil {
		return nil, "", err
	}
	return snap, string(encoded), nil
}

// applyOrRollback writes snap; if a write fails the live state is written back
// so the caller is never left with a half-applied restore.
func (s *Service) applyOrRollback(snap, live *Snapshot) (map[string]int, error) {
	counts, err := s.apply(snap)
	if err == nil {
		return counts, nil
	}
	if _, rerr := s.apply(live); rerr != nil {
		s.logger.Errorf(providers.TypeRestore, "Rollback after failed restore also failed: %s", rerr)
		return nil, fmt.Errorf("restore %s: %w (rollback failed: %v)", snap.Timestamp, err, rerr)
	}
	return nil, fmt.Errorf("restore %s: %w", snap.Timestamp, err)
}

// apply writes every dataset of snap to its key. List datasets missing from
// snap are written empty; object datasets missing from snap are left alone.
func (s *Service) apply(snap *Snapshot) (map[string]int, error) {
	counts := make(map[string]int)
	known := make(map[string]struct{}, len(s.datasets))

	for _, ds := range s.datasets {
		known[ds.Name] = struct{}{}
		raw, present := snap.Data[ds.Name]
		if present && isNull(raw) {
			present = false
		}

		if ds.Kind == KindObject {
			if !present {
				continue
			}
			if err := s.store.Set(s.dataPrefix+ds.Name, storedValue(raw)); err != nil {
				return nil, fmt.Errorf("write dataset %s: %w", ds.Name, err)
			}
			continue
		}

		if !present {
			raw = emptyValue(KindList)
		}
		value := storedValue(raw)
		if err := s.store.Set(s.dataPrefix+ds.Name, value); err != nil {
			return nil, fmt.Errorf("write dataset %s: %w", ds.Name, err)
		}
		counts[ds.Name] = s.countRecords(ds.Name, json.RawMessage(value))
	}

	// datasets the snapshot carries that are no longer configured go back as is
	extra := make([]string, 0)
	for name := range snap.Data {
		if _, ok := known[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		raw := snap.Data[name]
		if isNull(raw) || strings.HasPrefix(s.dataPrefix+name, s.keys.prefix) {
			continue
		}
		value := storedValue(raw)
		if err := s.store.Set(s.dataPrefix+name, value); err != nil {
			return nil, fmt.Errorf("write dataset %s: %w", name, err)
		}
		var records []json.RawMessage
		if json.Unmarshal([]byte(value), &records) == nil {
			counts[name] = len(records)
		}
	}
	return counts, nil
}

func (s *Service) countRecords(name string, raw json.RawMessage) int {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		s.logger.Warnf(providers.TypeRestore, "Dataset %s is not a list, counting 0 records", name)
		return 0
	}
	return len(records)
}

// ClearBackups removes every key in the backup namespace and reports whether
// all removals succeeded.
func (s *Service) ClearBackups() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.store.Keys(s.keys.prefix)
	if err != nil {
		s.logger.Errorf(providers.TypeBackup, "Error while listing backup keys, removing known keys only: %s", err)
		keys = []string{s.keys.latest(), s.keys.history(), s.keys.preRestore()}
		for i := 0; i < s.ring.capacity; i++ {
			keys = append(keys, s.keys.slot(i))
		}
	}

	ok := err == nil
	for _, key := range keys {
		if rerr := s.store.Remove(key); rerr != nil {
			s.logger.Errorf(providers.TypeBackup, "Error while removing %s: %s", key, rerr)
			ok = false
		}
	}
	if ok {
		s.metrics.SetHistoryLength(0)
		s.logger.Infof(providers.TypeBackup, "Cleared %d backup keys", len(keys))
	}
	return ok
}

// GetBackupStats summarises the history.
func (s *Service) GetBackupStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.historyLocked()
	stats := Stats{Count: len(history)}
	if len(history) == 0 {
		return stats
	}
	for _, e := range history {
		stats.TotalSize += e.Size
	}
	stats.AverageSize = (stats.TotalSize + stats.Count/2) / stats.Count
	newest := history[0].Timestamp
	oldest := history[len(history)-1].Timestamp
	stats.Newest = &newest
	stats.Oldest = &oldest
	return stats
}
