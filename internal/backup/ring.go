package backup

import (
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"backupd/internal/kvstore"
)

type keySpace struct {
	prefix string
}

func (k keySpace) latest() string     { return k.prefix + "latest" }
func (k keySpace) history() string    { return k.prefix + "history" }
func (k keySpace) preRestore() string { return k.prefix + "preRestore" }
func (k keySpace) slot(i int) string  { return k.prefix + "slot." + strconv.Itoa(i) }

// slotIndex parses a slot key back into its position.
func (k keySpace) slotIndex(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, k.prefix+"slot.")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// ring is the bounded, newest-first sequence of retained snapshots. History[i]
// describes the payload in slot i; pushing a snapshot shifts every payload one
// slot towards the tail and drops whatever falls past capacity.
type ring struct {
	store    kvstore.Store
	keys     keySpace
	capacity int
}

// history returns the stored sequence. A missing or undecodable history is empty.
func (r *ring) history() ([]HistoryEntry, error) {
	raw, ok, err := r.store.Get(r.keys.history())
	if err != nil {
		return []HistoryEntry{}, err
	}
	if !ok {
		return []HistoryEntry{}, nil
	}
	var entries []HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return []HistoryEntry{}, fmt.Errorf("decode history: %w", err)
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries, nil
}

// push records entry as the newest snapshot and writes payload to slot 0.
// The history is written first; a later slot failure leaves the slots written
// so far in place and is returned as is.
func (r *ring) push(prev []HistoryEntry, entry HistoryEntry, payload string) ([]HistoryEntry, error) {
	next := make([]HistoryEntry, 0, min(len(prev)+1, r.capacity))
	next = append(next, entry)
	for _, e := range prev {
		if len(next) == r.capacity {
			break
		}
		next = append(next, e)
	}

	encoded, err := json.Marshal(next)
	if err != nil {
		return prev, err
	}
	if err := r.store.Set(r.keys.history(), string(encoded)); err != nil {
		return prev, fmt.Errorf("write history: %w", err)
	}

	// tail first so every slot is read before it is overwritten
	for i := len(next) - 1; i >= 1; i-- {
		older, ok, err := r.store.Get(r.keys.slot(i - 1))
		if err != nil {
			return next, fmt.Errorf("read slot %d: %w", i-1, err)
		}
		if !ok {
			if err := r.store.Remove(r.keys.slot(i)); err != nil {
				return next, fmt.Errorf("clear slot %d: %w", i, err)
			}
			continue
		}
		if err := r.store.Set(r.keys.slot(i), older); err != nil {
			return next, fmt.Errorf("write slot %d: %w", i, err)
		}
	}
	if err := r.store.Set(r.keys.slot(0), payload); err != nil {
		return next, fmt.Errorf("write slot 0: %w", err)
	}

	return next, r.evict(len(next))
}

// evict removes every slot at or past position from.
func (r *ring) evict(from int) error {
	keys, err := r.store.Keys(r.keys.prefix + "slot.")
	if err != nil {
		return fmt.Errorf("list slots: %w", err)
	}
	for _, key := range keys {
		if i, ok := r.keys.slotIndex(key); ok && i >= from {
			if err := r.store.Remove(key); err != nil {
				return fmt.Errorf("evict slot %d: %w", i, err)
			}
		}
	}
	return nil
}

// slot returns the raw payload at position i.
func (r *ring) slot(i int) (string, bool, error) {
	return r.store.Get(r.keys.slot(i))
}
