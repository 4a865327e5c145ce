package lsm

import "testing"

func TestMemTablePutGet(t *testing.T) {
	mt := NewMemTable(100)

	mt.Put("a", "1")
	mt.Put("b", "2")

	if v, ok := mt.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	if _, ok := mt.Get("z"); ok {
		t.Fatal("Get(z) should report not found")
	}
}

func TestMemTableOverwrite(t *testing.T) {
	mt := NewMemTable(100)

	mt.Put("a", "1")
	mt.Put("a", "2")

	if v, _ := mt.Get("a"); v != "2" {
		t.Fatalf("expected overwritten value 2, got %s", v)
	}
	if mt.Len() != 1 {
		t.Fatalf("expected 1 record after overwrite, got %d", mt.Len())
	}
}

func TestMemTableFlushSignal(t *testing.T) {
	mt := NewMemTable(3)

	if mt.Put("a", "1") {
		t.Fatal("should not signal flush before reaching capacity")
	}
	if mt.Put("b", "2") {
		t.Fatal("should not signal flush before reaching capacity")
	}
	if !mt.Put("c", "3") {
		t.Fatal("should signal flush once capacity is reached")
	}
}

func TestMemTableRange(t *testing.T) {
	mt := NewMemTable(100)
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		mt.Put(k, k+k)
	}

	got := mt.Range("b", "d")
	want := []string{"b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(got), got)
	}
	for i, e := range got {
		if e.Key != want[i] {
			t.Fatalf("entry %d: expected key %s, got %s", i, want[i], e.Key)
		}
	}
}

func TestMemTableFlushDrainsAndEmpties(t *testing.T) {
	mt := NewMemTable(100)
	mt.Put("a", "1")
	mt.Put("b", "2")

	entries := mt.Flush()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Key != "a" || entries[1].Key != "b" {
		t.Fatalf("expected ascending order, got %+v", entries)
	}

	if mt.Len() != 0 {
		t.Fatalf("expected empty table after flush, got len %d", mt.Len())
	}
	if _, ok := mt.Get("a"); ok {
		t.Fatal("key should be gone after flush")
	}
}

func TestMemTableFlushEmpty(t *testing.T) {
	mt := NewMemTable(10)
	entries := mt.Flush()
	if len(entries) != 0 {
		t.Fatalf("expected no entries from an empty flush, got %d", len(entries))
	}
}
