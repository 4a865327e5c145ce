package lsm

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// TombstoneMarker is the sentinel value written in place of a deleted key.
// It is never a legal value for Insert (§4.4, §9) and is filtered out of
// Get/Range results at read time.
const TombstoneMarker = "<DELETED>"

// Config controls a Table's on-disk layout and merge behavior.
type Config struct {
	// Directory is the root under which level0, level1, ... subdirectories
	// are created and read back on Open.
	Directory string
	// Fanout (R) is the number of components a level may hold before its
	// overflow is merged down into the next level.
	Fanout int
	// MemtableCapacity (L) is the number of records the memtable accepts
	// before Insert/Delete signal a flush.
	MemtableCapacity int
}

// DefaultConfig returns a Config with the reference fanout and memtable
// capacity from §4.1/§4.4, rooted at directory.
func DefaultConfig(directory string) Config {
	return Config{
		Directory:        directory,
		Fanout:           10,
		MemtableCapacity: 1000,
	}
}

// Table is the top-level LSM store: a single memtable plus a sequence of
// on-disk levels, each holding immutable components (§4.1).
type Table struct {
	directory string
	fanout    int

	memtable *MemTable

	levelsMu sync.Mutex
	levels   []*level

	closeMu sync.Mutex
	closed  bool
}

// Open reconstructs a Table from directory, creating it if it doesn't exist
// yet. Existing level*/comp_*.dat files are loaded and ordered newest-first
// within each level.
func Open(config Config) (*Table, error) {
	fanout := config.Fanout
	if fanout <= 0 {
		fanout = 10
	}
	capacity := config.MemtableCapacity
	if capacity <= 0 {
		capacity = 1000
	}

	if err := os.MkdirAll(config.Directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create table directory: %w", err)
	}

	t := &Table{
		directory: config.Directory,
		fanout:    fanout,
		memtable:  NewMemTable(capacity),
	}
	if err := t.loadLevels(); err != nil {
		return nil, fmt.Errorf("failed to load existing levels: %w", err)
	}
	return t, nil
}

func (t *Table) isClosed() bool {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	return t.closed
}

// Insert upserts key/value in the memtable, flushing to level 0 (and
// cascading any resulting merges) if that pushes the memtable to capacity.
// value must not equal TombstoneMarker.
func (t *Table) Insert(key, value string) error {
	if t.isClosed() {
		return ErrClosed
	}
	if value == TombstoneMarker {
		return ErrInvalidValue
	}
	if t.memtable.Put(key, value) {
		return t.flush()
	}
	return nil
}

// Delete records a tombstone for key. The key is not removed immediately; it
// is shadowed on read, and the tombstone itself is carried through every
// merge rather than dropped.
func (t *Table) Delete(key string) error {
	if t.isClosed() {
		return ErrClosed
	}
	if t.memtable.Put(key, TombstoneMarker) {
		return t.flush()
	}
	return nil
}

// Get returns the current value for key, checking the memtable first and
// then each level in order, newest component first within a level (§4.1.3).
// A tombstone, wherever found, reads back as not-found.
func (t *Table) Get(key string) (string, bool, error) {
	if t.isClosed() {
		return "", false, ErrClosed
	}

	if v, found := t.memtable.Get(key); found {
		if v == TombstoneMarker {
			return "", false, nil
		}
		return v, true, nil
	}

	for _, lvl := range t.snapshotLevels() {
		lvl.mu.Lock()
		v, found, err := getFromComponents(lvl.components, key)
		lvl.mu.Unlock()
		if err != nil {
			return "", false, err
		}
		if found {
			if v == TombstoneMarker {
				return "", false, nil
			}
			return v, true, nil
		}
	}
	return "", false, nil
}

func getFromComponents(comps []*Component, key string) (string, bool, error) {
	for _, c := range comps {
		v, found, err := c.Get(key)
		if err != nil {
			return "", false, err
		}
		if found {
			return v, true, nil
		}
	}
	return "", false, nil
}

// Range returns every live key in [start, end], ascending, with the freshest
// value for each key and tombstoned keys dropped (§4.1.3). Precedence is
// memtable, then levels in order, then components newest-first within a
// level — the first value seen for a key wins.
func (t *Table) Range(start, end string) ([]Entry, error) {
	if t.isClosed() {
		return nil, ErrClosed
	}

	values := make(map[string]string)
	var order []string
	record := func(k, v string) {
		if _, seen := values[k]; seen {
			return
		}
		values[k] = v
		order = append(order, k)
	}

	for _, e := range t.memtable.Range(start, end) {
		record(e.Key, e.Value)
	}

	for _, lvl := range t.snapshotLevels() {
		lvl.mu.Lock()
		for _, c := range lvl.components {
			items, err := c.Range(start, end)
			if err != nil {
				lvl.mu.Unlock()
				return nil, err
			}
			for _, e := range items {
				record(e.Key, e.Value)
			}
		}
		lvl.mu.Unlock()
	}

	sort.Strings(order)
	out := make([]Entry, 0, len(order))
	for _, k := range order {
		if values[k] == TombstoneMarker {
			continue
		}
		out = append(out, Entry{Key: k, Value: values[k]})
	}
	return out, nil
}

// Flush forces the memtable to drain into a new level 0 component,
// cascading any merges that overflow triggers. A no-op on an empty
// memtable.
func (t *Table) Flush() error {
	if t.isClosed() {
		return ErrClosed
	}
	return t.flush()
}

func (t *Table) flush() error {
	flushed := false
	err := t.memtable.Drain(func(entries []Entry) error {
		flushed = true
		return t.appendFlushedComponent(entries)
	})
	if err != nil {
		// appendFlushedComponent failed: Drain left the memtable holding
		// the same entries, so the next write or explicit Flush retries
		// this batch instead of losing it (§7).
		return err
	}
	if !flushed {
		return nil
	}
	return t.maybeMerge(0)
}

// Close releases every component's file handle. A Table must not be used
// after Close; subsequent calls return ErrClosed. Close is idempotent.
func (t *Table) Close() error {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return nil
	}
	t.closed = true
	t.closeMu.Unlock()

	var firstErr error
	for _, lvl := range t.snapshotLevels() {
		lvl.mu.Lock()
		for _, c := range lvl.components {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		lvl.mu.Unlock()
	}
	return firstErr
}
