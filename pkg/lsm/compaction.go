package lsm

import (
	"container/heap"
	"fmt"
	"os"
	"path/filepath"
)

// mergeItem is one candidate entry on the merge heap: the entry itself, and
// srcIdx identifying which component it came from. Components are indexed in
// newest-first order, so a smaller srcIdx is the newer source.
type mergeItem struct {
	entry  Entry
	srcIdx int
}

// mergeHeap is a min-heap over mergeItem ordered by key, with ties broken in
// favor of the newer component (smaller srcIdx), per §4.1.2 step 3.
type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].entry.Key != h[j].entry.Key {
		return h[i].entry.Key < h[j].entry.Key
	}
	return h[i].srcIdx < h[j].srcIdx
}
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x interface{}) {
	*h = append(*h, x.(mergeItem))
}
func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergeComponents performs a k-way merge of comps (newest first) using a
// min-heap keyed on (key, source recency), writing the deduplicated result as
// a new component at path. Every comps[i].IterItems() value is materialized
// up front — components in this tree are small enough that this mirrors the
// per-item generator the original implementation drives without needing a
// goroutine-based iterator in Go.
//
// Tombstones are carried through unchanged: this function never drops a
// "<DELETED>" value, even at the deepest level (§9).
func mergeComponents(path string, comps []*Component) (*Component, error) {
	streams := make([][]Entry, len(comps))
	for i, c := range comps {
		items, err := c.IterItems()
		if err != nil {
			return nil, fmt.Errorf("failed to read component for merge: %w", err)
		}
		streams[i] = items
	}

	cursors := make([]int, len(comps))
	h := &mergeHeap{}
	heap.Init(h)
	for idx, s := range streams {
		if len(s) > 0 {
			heap.Push(h, mergeItem{entry: s[0], srcIdx: idx})
		}
	}

	var out []Entry
	var lastKey string
	haveLast := false

	for h.Len() > 0 {
		item := heap.Pop(h).(mergeItem)

		cursors[item.srcIdx]++
		if next := cursors[item.srcIdx]; next < len(streams[item.srcIdx]) {
			heap.Push(h, mergeItem{entry: streams[item.srcIdx][next], srcIdx: item.srcIdx})
		}

		if haveLast && item.entry.Key == lastKey {
			continue
		}
		out = append(out, item.entry)
		lastKey = item.entry.Key
		haveLast = true
	}

	return CreateComponent(path, out)
}

// maybeMerge checks level n and, while it holds more than the configured
// fanout of components, merges all of them into a single component one level
// down, then continues the check at n+1. This iterates rather than
// recursing, but the locking discipline is the same as the original
// recursive description in §4.1.2: level n's lock is held across its entire
// merge, including the brief moment its lock and level n+1's lock are both
// held while the merged component is handed off, so a reader never observes
// the merged keys as missing from both levels. The lock is released before
// the next level is examined, so at most two level locks are ever held at
// once, and always in ascending level order.
func (t *Table) maybeMerge(n int) error {
	for {
		lvl := t.ensureLevel(n)
		lvl.mu.Lock()

		if len(lvl.components) <= t.fanout {
			lvl.mu.Unlock()
			return nil
		}

		comps := lvl.components
		nextDir := t.levelDir(n + 1)
		if err := os.MkdirAll(nextDir, 0755); err != nil {
			lvl.mu.Unlock()
			return fmt.Errorf("failed to create level%d directory: %w", n+1, err)
		}
		id, err := nextComponentID(nextDir)
		if err != nil {
			lvl.mu.Unlock()
			return err
		}
		outPath := filepath.Join(nextDir, fmt.Sprintf("comp_%d.dat", id))

		merged, err := mergeComponents(outPath, comps)
		if err != nil {
			// Source components and the level list are left untouched; any
			// partial output file was already cleaned up by CreateComponent.
			lvl.mu.Unlock()
			return fmt.Errorf("failed to merge level%d: %w", n, err)
		}

		for _, c := range comps {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = cerr
			}
			if rerr := os.Remove(c.Path()); rerr != nil && err == nil {
				err = rerr
			}
		}
		lvl.components = nil

		// Level n's lock stays held until the merged component is visible in
		// level n+1, so a reader can never observe the window where the
		// merged keys exist in neither level (matching _maybe_merge in the
		// reference implementation, which holds the source level's lock
		// across both the clear and the insert).
		if merged != nil {
			next := t.ensureLevel(n + 1)
			next.mu.Lock()
			next.components = append([]*Component{merged}, next.components...)
			next.mu.Unlock()
		}
		lvl.mu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to retire level%d components after merge: %w", n, err)
		}

		n++
	}
}
