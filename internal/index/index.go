// Package index tracks which storage key holds each persisted entity id.
package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"entitystore/internal/blob"
)

// Lister is the part of a blob store Rebuild needs.
type Lister interface {
	List(ctx context.Context, prefix string) ([]blob.Info, error)
}

// Stats summarizes a Rebuild scan.
type Stats struct {
	Scanned int
	Matched int
	// Skipped counts keys that did not follow the naming scheme.
	Skipped int
	// Duplicates lists keys shadowed by another key carrying the same id.
	Duplicates []string
}

// Index maps entity ids to full storage keys. Writes come from a single
// owner; reads may happen concurrently from any goroutine.
type Index struct {
	mu   sync.RWMutex
	keys map[int]string
}

// New returns an empty index.
func New() *Index {
	return &Index{keys: make(map[int]string)}
}

// Rebuild scans every key under prefix and indexes those matching the naming
// scheme for ext. Keys in nested directories below prefix never match. When
// two keys carry the same id the lexicographically last one wins.
func Rebuild(ctx context.Context, lister Lister, prefix, ext string) (*Index, Stats, error) {
	var stats Stats
	infos, err := lister.List(ctx, prefix)
	if err != nil {
		return nil, stats, fmt.Errorf("list %q: %w", prefix, err)
	}
	re := Pattern(ext)
	idx := New()
	for _, info := range infos {
		stats.Scanned++
		rel := strings.TrimPrefix(info.Key, prefix)
		id, ok := parseWith(re, rel)
		if !ok {
			stats.Skipped++
			continue
		}
		if prev, dup := idx.keys[id]; dup {
			if prev > info.Key {
				stats.Duplicates = append(stats.Duplicates, info.Key)
				continue
			}
			stats.Duplicates = append(stats.Duplicates, prev)
		} else {
			stats.Matched++
		}
		idx.keys[id] = info.Key
	}
	return idx, stats, nil
}

// Put records key as the location of id and returns the key it replaces.
func (i *Index) Put(id int, key string) (previous string, replaced bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	previous, replaced = i.keys[id]
	i.keys[id] = key
	return previous, replaced
}

// Remove forgets id and reports whether it was present.
func (i *Index) Remove(id int) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.keys[id]; !ok {
		return false
	}
	delete(i.keys, id)
	return true
}

// Get returns the key recorded for id.
func (i *Index) Get(id int) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	key, ok := i.keys[id]
	return key, ok
}

// IDs returns every indexed id in ascending order.
func (i *Index) IDs() []int {
	i.mu.RLock()
	ids := make([]int, 0, len(i.keys))
	for id := range i.keys {
		ids = append(ids, id)
	}
	i.mu.RUnlock()
	sort.Ints(ids)
	return ids
}

// Len returns the number of indexed ids.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.keys)
}
