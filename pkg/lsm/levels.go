package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// level holds the components that live at one level of the tree, newest
// first. Its mutex is held for the duration of any scan, mutation, or merge
// that touches the level (§5).
type level struct {
	mu         sync.Mutex
	components []*Component
}

// ensureLevel returns the level at index n, growing the level slice under
// levelsMu if it doesn't exist yet.
func (t *Table) ensureLevel(n int) *level {
	t.levelsMu.Lock()
	defer t.levelsMu.Unlock()
	for len(t.levels) <= n {
		t.levels = append(t.levels, &level{})
	}
	return t.levels[n]
}

// snapshotLevels returns a shallow copy of the current level list, so readers
// can iterate without holding levelsMu across per-level locking.
func (t *Table) snapshotLevels() []*level {
	t.levelsMu.Lock()
	defer t.levelsMu.Unlock()
	out := make([]*level, len(t.levels))
	copy(out, t.levels)
	return out
}

func (t *Table) levelDir(n int) string {
	return filepath.Join(t.directory, fmt.Sprintf("level%d", n))
}

// nextComponentID assigns a new component's id as the current count of
// component files already in dir, per the original implementation's
// directory-listing scheme (§9 open question). Concurrent flushes into the
// same level can race on this count; see SPEC_FULL.md for the accepted
// limitation.
func nextComponentID(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list level directory: %w", err)
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".dat") {
			count++
		}
	}
	return count, nil
}

// appendFlushedComponent writes entries as a new component in level 0 and
// prepends it to the level's component list, holding level 0's lock for the
// entire operation.
func (t *Table) appendFlushedComponent(entries []Entry) error {
	lvl := t.ensureLevel(0)
	lvl.mu.Lock()
	defer lvl.mu.Unlock()

	dir := t.levelDir(0)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create level0 directory: %w", err)
	}

	id, err := nextComponentID(dir)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("comp_%d.dat", id))

	comp, err := CreateComponent(path, entries)
	if err != nil {
		return fmt.Errorf("failed to flush memtable to level0: %w", err)
	}
	if comp == nil {
		return nil
	}

	lvl.components = append([]*Component{comp}, lvl.components...)
	return nil
}

// loadLevels reconstructs the level list from existing levelN/comp_<id>.dat
// files on disk, ordering each level's components newest-first by id, per
// §4.1. A component that fails to open is fatal: a table must not silently
// drop data it cannot read.
func (t *Table) loadLevels() error {
	dirEntries, err := os.ReadDir(t.directory)
	if err != nil {
		return fmt.Errorf("failed to list table directory: %w", err)
	}

	for _, de := range dirEntries {
		if !de.IsDir() || !strings.HasPrefix(de.Name(), "level") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(de.Name(), "level"))
		if err != nil {
			continue
		}

		levelDir := filepath.Join(t.directory, de.Name())
		files, err := os.ReadDir(levelDir)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", levelDir, err)
		}

		type idComp struct {
			id   int
			comp *Component
		}
		var comps []idComp
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			id, ok := componentID(f.Name())
			if !ok {
				continue
			}
			comp, err := OpenComponent(filepath.Join(levelDir, f.Name()))
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", f.Name(), err)
			}
			comps = append(comps, idComp{id, comp})
		}

		sort.Slice(comps, func(i, j int) bool { return comps[i].id > comps[j].id })

		lvl := t.ensureLevel(n)
		for _, ic := range comps {
			lvl.components = append(lvl.components, ic.comp)
		}
	}
	return nil
}
