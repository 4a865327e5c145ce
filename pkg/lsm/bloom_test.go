package lsm

import (
	"fmt"
	"testing"
)

func TestBloomFilterBasic(t *testing.T) {
	bf := NewBloomFilter(1000, defaultFalsePositiveRate)

	keys := []string{"apple", "banana", "cherry", "date"}
	for _, key := range keys {
		bf.Add(key)
	}

	for _, key := range keys {
		if !bf.Contains(key) {
			t.Fatalf("key %s should be in bloom filter", key)
		}
	}
}

func TestBloomFilterNoFalseNegatives(t *testing.T) {
	bf := NewBloomFilter(1000, defaultFalsePositiveRate)

	bf.Add("key1")
	bf.Add("key2")

	if !bf.Contains("key1") {
		t.Fatal("false negative: key1 should be found")
	}
	if !bf.Contains("key2") {
		t.Fatal("false negative: key2 should be found")
	}
}

func TestBloomFilterFalsePositiveRate(t *testing.T) {
	n := 500
	bf := NewBloomFilter(n, 0.01)

	for i := 0; i < n; i++ {
		bf.Add(fmt.Sprintf("key-%d", i))
	}

	falsePositives := 0
	testKeys := 2000
	for i := n; i < n+testKeys; i++ {
		if bf.Contains(fmt.Sprintf("key-%d", i)) {
			falsePositives++
		}
	}

	fpr := float64(falsePositives) / float64(testKeys)
	if fpr > 0.1 {
		t.Fatalf("false positive rate too high for a 1%% target: %.3f%%", fpr*100)
	}
	t.Logf("observed false positive rate: %.3f%% (%d/%d)", fpr*100, falsePositives, testKeys)
}

func TestBloomFilterEncodeDecode(t *testing.T) {
	bf := NewBloomFilter(1000, defaultFalsePositiveRate)

	keys := []string{"test1", "test2", "test3"}
	for _, key := range keys {
		bf.Add(key)
	}

	data := bf.Encode()
	if len(data) != bf.Size() {
		t.Fatalf("Size() %d does not match Encode() length %d", bf.Size(), len(data))
	}

	bf2, err := DecodeBloomFilter(data)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	for _, key := range keys {
		if !bf2.Contains(key) {
			t.Fatalf("key %s not found after decode", key)
		}
	}
	if bf2.m != bf.m {
		t.Fatalf("m mismatch: %d != %d", bf2.m, bf.m)
	}
	if len(bf2.seeds) != len(bf.seeds) {
		t.Fatalf("seed count mismatch: %d != %d", len(bf2.seeds), len(bf.seeds))
	}
}

func TestBloomFilterEmpty(t *testing.T) {
	bf := NewBloomFilter(1000, defaultFalsePositiveRate)

	if bf.Contains("any-key") {
		t.Fatal("empty bloom filter should not contain any key")
	}
}

func TestBloomFilterMerge(t *testing.T) {
	a := NewBloomFilter(100, defaultFalsePositiveRate)
	b := NewBloomFilter(100, defaultFalsePositiveRate)

	a.Add("only-in-a")
	b.Add("only-in-b")

	if err := a.Merge(b); err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !a.Contains("only-in-a") || !a.Contains("only-in-b") {
		t.Fatal("merged filter should contain keys from both inputs")
	}
}

func TestBloomFilterMergeIncompatible(t *testing.T) {
	a := NewBloomFilter(100, defaultFalsePositiveRate)
	b := NewBloomFilter(5000, defaultFalsePositiveRate)

	if err := a.Merge(b); err != ErrInvalidBloomFilter {
		t.Fatalf("expected ErrInvalidBloomFilter, got %v", err)
	}
}

func TestBloomFilterDecodeInvalid(t *testing.T) {
	_, err := DecodeBloomFilter([]byte{1, 2, 3})
	if err != ErrInvalidBloomFilter {
		t.Fatalf("expected ErrInvalidBloomFilter, got %v", err)
	}
}

func TestSeedGeneration(t *testing.T) {
	bf := NewBloomFilter(1000, defaultFalsePositiveRate)
	for i, seed := range bf.seeds {
		want := uint64(i)*seedStride + seedBase
		if seed != want {
			t.Fatalf("seed[%d] = %d, want %d", i, seed, want)
		}
	}
}
