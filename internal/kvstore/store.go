// Package kvstore holds the string key-value stores the application keeps its
// datasets and backups in. Every driver stores UTF-8 JSON text verbatim.
package kvstore

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrQuotaExceeded is returned when a write would push the store over its byte quota.
	ErrQuotaExceeded = errors.New("kvstore: quota exceeded")
	ErrClosed        = errors.New("kvstore: store is closed")
)

type Store interface {
	// Get returns the value under key and whether it exists.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	// Keys lists the stored keys that start with prefix, sorted.
	Keys(prefix string) ([]string, error)
	Close() error
}

// entrySize is what an entry costs against a quota.
func entrySize(key, value string) int {
	return len(key) + len(value)
}

// quotaMap is the map + byte accounting shared by the in-process drivers.
type quotaMap struct {
	data  map[string]string
	quota int
	used  int
}

func newQuotaMap(quota int) quotaMap {
	return quotaMap{data: make(map[string]string), quota: quota}
}

func (q *quotaMap) load(data map[string]string) {
	q.data = data
	q.used = 0
	for k, v := range data {
		q.used += entrySize(k, v)
	}
}

// set returns the previous value so a failed persist can roll back.
func (q *quotaMap) set(key, value string) (prev string, existed bool, err error) {
	prev, existed = q.data[key]
	used := q.used + entrySize(key, value)
	if existed {
		used -= entrySize(key, prev)
	}
	if q.quota > 0 && used > q.quota {
		return prev, existed, ErrQuotaExceeded
	}
	q.data[key] = value
	q.used = used
	return prev, existed, nil
}

func (q *quotaMap) remove(key string) (prev string, existed bool) {
	prev, existed = q.data[key]
	if existed {
		delete(q.data, key)
		q.used -= entrySize(key, prev)
	}
	return prev, existed
}

func (q *quotaMap) restore(key, prev string, existed bool) {
	if existed {
		_, _, _ = q.set(key, prev)
		return
	}
	q.remove(key)
}

func (q *quotaMap) keys(prefix string) []string {
	keys := make([]string, 0)
	for k := range q.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
