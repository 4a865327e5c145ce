package lsm

import (
	"encoding/binary"
	"math"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// defaultFalsePositiveRate is the target false-positive rate used when a
// component is built from a flush or a merge (§4.1.1 of the design).
const defaultFalsePositiveRate = 0.01

// seedStride and seedBase generate deterministic seeds so a filter
// deserialized from a component file reproduces the original hash family.
const (
	seedStride = 179179
	seedBase   = 179
)

// BloomFilter is a probabilistic set with no false negatives, attached to
// every disk component to reject absent keys before a binary search.
type BloomFilter struct {
	mu    sync.Mutex
	bits  []byte
	m     uint64 // number of bits
	seeds []uint64
}

// bloomParams computes the optimal bit count m and hash count k for n
// expected keys at the given false-positive rate:
//
//	m = ceil(-n * ln(p) / ln(2)^2), k = floor(m/n * ln(2)) + 1
func bloomParams(n int, p float64) (m uint64, k int) {
	fn := float64(n)
	m = uint64(math.Ceil(-fn * math.Log(p) / (math.Ln2 * math.Ln2)))
	k = int(math.Floor(float64(m)/fn*math.Ln2)) + 1
	return m, k
}

// NewBloomFilter creates a filter sized for expectedKeys at the given
// false-positive rate, generating seeds deterministically.
func NewBloomFilter(expectedKeys int, falsePositiveRate float64) *BloomFilter {
	m, k := bloomParams(expectedKeys, falsePositiveRate)
	seeds := make([]uint64, k)
	for i := range seeds {
		seeds[i] = uint64(i)*seedStride + seedBase
	}
	return newBloomFilterWithSeeds(m, seeds)
}

func newBloomFilterWithSeeds(m uint64, seeds []uint64) *BloomFilter {
	return &BloomFilter{
		bits:  make([]byte, (m+7)/8),
		m:     m,
		seeds: seeds,
	}
}

// hashAt computes the bit position for key under the i-th seed using a
// keyed BLAKE2b-64 digest: the seed, as 8 little-endian bytes, is the
// hash's key. Any collision-resistant keyed hash with 64-bit output would
// do; BLAKE2b is what the reference implementation this was ported from
// uses (hashlib.blake2b(key, digest_size=8, key=seed_bytes)).
func (bf *BloomFilter) hashAt(key string, i int) uint64 {
	var seedBytes [8]byte
	binary.LittleEndian.PutUint64(seedBytes[:], bf.seeds[i])

	h, err := blake2b.New(8, seedBytes[:])
	if err != nil {
		panic("lsm: blake2b keyed hash: " + err.Error())
	}
	h.Write([]byte(key))
	digest := h.Sum(nil)
	return binary.LittleEndian.Uint64(digest) % bf.m
}

// Add inserts key into the filter. Safe for concurrent use with Contains.
func (bf *BloomFilter) Add(key string) {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	for i := range bf.seeds {
		pos := bf.hashAt(key, i)
		bf.bits[pos/8] |= 1 << (pos % 8)
	}
}

// Contains reports whether key may be present. false means definitely
// absent; true means present or a false positive. Lock-free: a concurrent
// Add only turns bits on, so a racing read observes either state safely.
func (bf *BloomFilter) Contains(key string) bool {
	for i := range bf.seeds {
		pos := bf.hashAt(key, i)
		if bf.bits[pos/8]&(1<<(pos%8)) == 0 {
			return false
		}
	}
	return true
}

// Merge ORs other's bits into bf. Both filters must share (m, k, seeds).
func (bf *BloomFilter) Merge(other *BloomFilter) error {
	if bf.m != other.m || len(bf.seeds) != len(other.seeds) {
		return ErrInvalidBloomFilter
	}
	for i := range bf.seeds {
		if bf.seeds[i] != other.seeds[i] {
			return ErrInvalidBloomFilter
		}
	}

	bf.mu.Lock()
	defer bf.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()
	for i := range bf.bits {
		bf.bits[i] |= other.bits[i]
	}
	return nil
}

// Size returns the encoded byte length of the filter, i.e. what §6.2
// calls bloom_size.
func (bf *BloomFilter) Size() int {
	return 8 + 8*len(bf.seeds) + len(bf.bits)
}

// Encode serializes the filter per the trailer layout of §6.2:
// bloom_m(4) | bloom_k(4) | seeds(8*k) | bits.
func (bf *BloomFilter) Encode() []byte {
	buf := make([]byte, bf.Size())
	binary.LittleEndian.PutUint32(buf[0:4], uint32(bf.m))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(bf.seeds)))
	off := 8
	for _, s := range bf.seeds {
		binary.LittleEndian.PutUint64(buf[off:off+8], s)
		off += 8
	}
	copy(buf[off:], bf.bits)
	return buf
}

// DecodeBloomFilter parses the trailer layout written by Encode.
func DecodeBloomFilter(data []byte) (*BloomFilter, error) {
	if len(data) < 8 {
		return nil, ErrInvalidBloomFilter
	}
	m := uint64(binary.LittleEndian.Uint32(data[0:4]))
	k := int(binary.LittleEndian.Uint32(data[4:8]))
	if k < 0 || len(data) < 8+8*k {
		return nil, ErrInvalidBloomFilter
	}
	seeds := make([]uint64, k)
	off := 8
	for i := 0; i < k; i++ {
		seeds[i] = binary.LittleEndian.Uint64(data[off : off+8])
		off += 8
	}
	wantBytes := int((m + 7) / 8)
	bits := data[off:]
	if len(bits) != wantBytes {
		return nil, ErrInvalidBloomFilter
	}
	bf := newBloomFilterWithSeeds(m, seeds)
	copy(bf.bits, bits)
	return bf, nil
}
