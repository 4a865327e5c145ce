package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func entries(pairs ...string) []Entry {
	out := make([]Entry, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Entry{Key: pairs[i], Value: pairs[i+1]})
	}
	return out
}

func TestComponentCreateAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comp_0.dat")
	comp, err := CreateComponent(path, entries("a", "1", "b", "2", "c", "3"))
	if err != nil {
		t.Fatalf("CreateComponent: %v", err)
	}
	defer comp.Close()

	if comp.NumKeys() != 3 {
		t.Fatalf("expected 3 keys, got %d", comp.NumKeys())
	}

	v, found, err := comp.Get("b")
	if err != nil || !found || v != "2" {
		t.Fatalf("Get(b) = %q, %v, %v", v, found, err)
	}

	_, found, err = comp.Get("z")
	if err != nil || found {
		t.Fatalf("Get(z) should not be found, got %v, %v", found, err)
	}
}

func TestComponentEmptyMemtableProducesNoFile(t *testing.T) {
	comp, err := CreateComponent(filepath.Join(t.TempDir(), "comp_0.dat"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comp != nil {
		t.Fatal("expected nil component for empty entries")
	}
}

func TestComponentRejectsUnsortedInput(t *testing.T) {
	_, err := CreateComponent(filepath.Join(t.TempDir(), "comp_0.dat"), entries("b", "2", "a", "1"))
	if err == nil {
		t.Fatal("expected error for out-of-order keys")
	}
}

func TestComponentRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comp_0.dat")
	comp, err := CreateComponent(path, entries("a", "1", "b", "2", "c", "3", "d", "4", "e", "5"))
	if err != nil {
		t.Fatalf("CreateComponent: %v", err)
	}
	defer comp.Close()

	got, err := comp.Range("b", "d")
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	want := []string{"b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(got), got)
	}
	for i, e := range got {
		if e.Key != want[i] {
			t.Fatalf("entry %d: expected %s, got %s", i, want[i], e.Key)
		}
	}
}

func TestComponentIterItemsAscending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comp_0.dat")
	comp, err := CreateComponent(path, entries("a", "1", "b", "2", "c", "3"))
	if err != nil {
		t.Fatalf("CreateComponent: %v", err)
	}
	defer comp.Close()

	items, err := comp.IterItems()
	if err != nil {
		t.Fatalf("IterItems: %v", err)
	}
	var prev string
	for i, e := range items {
		if i > 0 && e.Key <= prev {
			t.Fatalf("keys not strictly ascending: %s after %s", e.Key, prev)
		}
		prev = e.Key
	}
}

func TestComponentReopenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comp_0.dat")
	comp, err := CreateComponent(path, entries("a", "1", "b", "2"))
	if err != nil {
		t.Fatalf("CreateComponent: %v", err)
	}
	comp.Close()

	reopened, err := OpenComponent(path)
	if err != nil {
		t.Fatalf("OpenComponent: %v", err)
	}
	defer reopened.Close()

	v, found, err := reopened.Get("a")
	if err != nil || !found || v != "1" {
		t.Fatalf("Get(a) after reopen = %q, %v, %v", v, found, err)
	}
}

func TestComponentOpenRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comp_0.dat")
	comp, err := CreateComponent(path, entries("a", "1", "b", "2", "c", "3"))
	if err != nil {
		t.Fatalf("CreateComponent: %v", err)
	}
	comp.Close()

	if err := os.Truncate(path, 4); err != nil {
		t.Fatalf("os.Truncate: %v", err)
	}

	if _, err := OpenComponent(path); err == nil {
		t.Fatal("expected an error opening a truncated component")
	}
}

func TestComponentBloomNoFalseNegatives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comp_0.dat")
	var pairs []string
	for i := 0; i < 200; i++ {
		pairs = append(pairs, fmt.Sprintf("key%03d", i), fmt.Sprintf("val%03d", i))
	}
	comp, err := CreateComponent(path, entries(pairs...))
	if err != nil {
		t.Fatalf("CreateComponent: %v", err)
	}
	defer comp.Close()

	for i := 0; i < 200; i++ {
		k := fmt.Sprintf("key%03d", i)
		if _, found, err := comp.Get(k); err != nil || !found {
			t.Fatalf("Get(%s) missed a present key: found=%v err=%v", k, found, err)
		}
	}
}

func TestComponentID(t *testing.T) {
	cases := map[string]int{
		"comp_0.dat":   0,
		"comp_12.dat":  12,
		"comp_007.dat": 7,
	}
	for name, want := range cases {
		id, ok := componentID(name)
		if !ok || id != want {
			t.Fatalf("componentID(%s) = %d, %v; want %d", name, id, ok, want)
		}
	}
	if _, ok := componentID("wal.log"); ok {
		t.Fatal("componentID should reject non-component filenames")
	}
}
