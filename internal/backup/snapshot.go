package backup

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"
)

// TimestampLayout is ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var (
	ErrNoBackup     = errors.New("no backup available")
	ErrNotFound     = errors.New("backup not found")
	ErrNoPreRestore = errors.New("no pre-restore snapshot available")
)

type DatasetKind string

const (
	KindList   DatasetKind = "list"
	KindObject DatasetKind = "object"
)

// Dataset is one named blob the rest of the application owns under its own key.
type Dataset struct {
	Name string
	Kind DatasetKind
}

// Snapshot is an immutable capture of every dataset at one instant. On the
// wire it is one flat object: timestamp, version and one member per dataset.
type Snapshot struct {
	Timestamp string
	Version   string
	Data      map[string]json.RawMessage
}

const (
	fieldTimestamp = "timestamp"
	fieldVersion   = "version"
)

func reservedDatasetName(name string) bool {
	return name == fieldTimestamp || name == fieldVersion
}

// MarshalJSON writes datasets in name order so equal snapshots encode equally.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(s.Data))
	for name := range s.Data {
		if !reservedDatasetName(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeMember(&buf, fieldTimestamp, s.Timestamp); err != nil {
		return nil, err
	}
	buf.WriteByte(',')
	if err := writeMember(&buf, fieldVersion, s.Version); err != nil {
		return nil, err
	}
	for _, name := range names {
		raw := s.Data[name]
		if len(raw) == 0 {
			raw = json.RawMessage("null")
		}
		buf.WriteByte(',')
		if err := writeMember(&buf, name, raw); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, name string, value any) error {
	key, err := json.Marshal(name)
	if err != nil {
		return err
	}
	val, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(b, &members); err != nil {
		return err
	}

	var snap Snapshot
	if raw, ok := members[fieldTimestamp]; ok {
		if err := json.Unmarshal(raw, &snap.Timestamp); err != nil {
			return fmt.Errorf("decode timestamp: %w", err)
		}
	}
	if raw, ok := members[fieldVersion]; ok {
		if err := json.Unmarshal(raw, &snap.Version); err != nil {
			return fmt.Errorf("decode version: %w", err)
		}
	}
	delete(members, fieldTimestamp)
	delete(members, fieldVersion)
	snap.Data = members
	*s = snap
	return nil
}

// HistoryEntry describes the snapshot stored in the slot at the same position.
type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Size      int    `json:"size"`
	Version   string `json:"version"`
	Checksum  string `json:"checksum,omitempty"`
}

type RestoreResult struct {
	Success   bool           `json:"success"`
	Timestamp string         `json:"timestamp,omitempty"`
	Version   string         `json:"version,omitempty"`
	Counts    map[string]int `json:"counts,omitempty"`
	Error     string         `json:"error,omitempty"`
	// Err carries the cause for callers that need to branch on it.
	Err error `json:"-"`
}

func failedRestore(err error) RestoreResult {
	return RestoreResult{Success: false, Error: err.Error(), Err: err}
}

type Stats struct {
	Count       int     `json:"count"`
	TotalSize   int     `json:"totalSize"`
	AverageSize int     `json:"averageSize"`
	Oldest      *string `json:"oldest"`
	Newest      *string `json:"newest"`
}

type Status struct {
	Running         bool      `json:"running"`
	AutoBackup      bool      `json:"autoBackup"`
	BackupFrequency Frequency `json:"backupFrequency"`
	Interval        string    `json:"interval"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func checksum(payload string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(payload))
}

func decodeSnapshot(payload string) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, err
	}
	if snap.Timestamp == "" {
		return nil, errors.New("snapshot has no timestamp")
	}
	if snap.Data == nil {
		snap.Data = make(map[string]json.RawMessage)
	}
	return &snap, nil
}

// preserveMalformed wraps a dataset value that is not JSON into a JSON string
// so the snapshot still carries its exact bytes.
func preserveMalformed(raw string) json.RawMessage {
	b, _ := json.Marshal(raw)
	return b
}

// storedValue is the text written back for a dataset. Datasets are lists or
// objects, so a string in their place is a preserved malformed value and goes
// back unwrapped.
func storedValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if json.Unmarshal(trimmed, &text) == nil {
			return text
		}
	}
	return string(raw)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
