package lsm

import (
	"bytes"
	"sync"
)

// MemTable is the in-memory write buffer: an ordered mapping keyed by
// string, backed by a skip list for O(log n) insert, point lookup, range
// scan, and ordered drain (§4.4).
type MemTable struct {
	mu       sync.Mutex
	skipList *SkipList
	capacity int // L: record count that triggers a flush
}

// NewMemTable creates an empty MemTable with the given record capacity.
func NewMemTable(capacity int) *MemTable {
	return &MemTable{
		skipList: NewSkipList(),
		capacity: capacity,
	}
}

// Put upserts key/value and reports whether the table is now at or over
// capacity — the caller's signal to flush.
func (mt *MemTable) Put(key, value string) bool {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.skipList.Insert([]byte(key), value)
	return mt.skipList.Size() >= mt.capacity
}

// Get returns the raw stored value for key (which may be the tombstone
// marker) and whether key is present at all.
func (mt *MemTable) Get(key string) (string, bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	v, found := mt.skipList.Search([]byte(key))
	if !found {
		return "", false
	}
	return v.(string), true
}

// Entry is a single key/value pair, used by Range, Flush, and iteration
// over disk components.
type Entry struct {
	Key   string
	Value string
}

// Range returns every stored entry whose key falls in [start, end],
// ascending, including raw tombstone values — the caller filters those.
func (mt *MemTable) Range(start, end string) []Entry {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var out []Entry
	endBytes := []byte(end)
	for node := mt.skipList.Seek([]byte(start)); node != nil && bytes.Compare(node.key, endBytes) <= 0; node = node.forward[0] {
		out = append(out, Entry{Key: string(node.key), Value: node.value.(string)})
	}
	return out
}

// Flush drains the table in ascending key order and empties it, atomically.
func (mt *MemTable) Flush() []Entry {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	out := mt.snapshotLocked()
	mt.skipList = NewSkipList()
	return out
}

// snapshotLocked returns every entry in ascending key order. Callers must
// hold mt.mu.
func (mt *MemTable) snapshotLocked() []Entry {
	var out []Entry
	for node := mt.skipList.head.forward[0]; node != nil; node = node.forward[0] {
		out = append(out, Entry{Key: string(node.key), Value: node.value.(string)})
	}
	return out
}

// Drain calls fn with a snapshot of every stored entry, ascending, without
// clearing the table first. The table's mutex is held for the duration of
// fn, so a concurrent Put cannot interleave with the decision of whether to
// clear. The table is only emptied if fn returns nil; if fn fails, every
// entry it saw is left in place so the caller can retry the same flush.
// fn is not called at all when the table is empty.
func (mt *MemTable) Drain(fn func([]Entry) error) error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	out := mt.snapshotLocked()
	if len(out) == 0 {
		return nil
	}
	if err := fn(out); err != nil {
		return err
	}
	mt.skipList = NewSkipList()
	return nil
}

// Len returns the number of records currently held.
func (mt *MemTable) Len() int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return mt.skipList.Size()
}
