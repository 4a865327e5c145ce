package lsm

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// headerSize is the fixed 8-byte header: num_keys(4) | bloom_size(4), §6.2.
const headerSize = 8

// Component is an immutable on-disk sorted-string file: a fixed header, a
// dense offset index, an ascending key/value payload, and a trailing bloom
// filter (§4.2, §6.2). It is the unit of flush, merge input, and merge
// output.
type Component struct {
	path        string
	file        *os.File
	numKeys     int
	bloomSize   int
	bloomFilter *BloomFilter
}

// CreateComponent writes entries — which must already be sorted ascending
// by key with no duplicates — as a new component file at path, per §6.2,
// then opens and returns it. An empty entries slice produces no file and
// returns (nil, nil), matching §4.1.1's "empty memtable ⇒ no file is
// produced" and §9's guidance to skip zero-key components rather than
// define a minimum filter size.
func CreateComponent(path string, entries []Entry) (*Component, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	n := len(entries)
	for i := 1; i < n; i++ {
		if entries[i-1].Key >= entries[i].Key {
			return nil, fmt.Errorf("%w: keys not strictly ascending at index %d", ErrCorruption, i)
		}
	}

	bloom := NewBloomFilter(n, defaultFalsePositiveRate)
	for _, e := range entries {
		bloom.Add(e.Key)
	}
	bloomData := bloom.Encode()

	recs := make([][]byte, n)
	offsets := make([]uint64, n)
	cur := uint64(headerSize) + uint64(n)*8
	for i, e := range entries {
		kb, vb := []byte(e.Key), []byte(e.Value)
		rec := make([]byte, 4+len(kb)+4+len(vb))
		binary.LittleEndian.PutUint32(rec[0:4], uint32(len(kb)))
		copy(rec[4:4+len(kb)], kb)
		binary.LittleEndian.PutUint32(rec[4+len(kb):8+len(kb)], uint32(len(vb)))
		copy(rec[8+len(kb):], vb)

		offsets[i] = cur
		recs[i] = rec
		cur += uint64(len(rec))
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create component file: %w", err)
	}

	var header [headerSize]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(n))
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(bloomData)))
	if _, err := f.Write(header[:]); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write component header: %w", err)
	}

	offsetBuf := make([]byte, 8*n)
	for i, off := range offsets {
		binary.LittleEndian.PutUint64(offsetBuf[i*8:i*8+8], off)
	}
	if _, err := f.Write(offsetBuf); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write component offset table: %w", err)
	}

	for _, rec := range recs {
		if _, err := f.Write(rec); err != nil {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("failed to write component payload: %w", err)
		}
	}

	if _, err := f.Write(bloomData); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write component bloom trailer: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to sync component file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close component file: %w", err)
	}

	return OpenComponent(path)
}

// OpenComponent opens an existing component file, validating the header
// invariant of §4.2: num_keys must match the offset table, and the bloom
// trailer length must match the header's declared bloom_size. A failure
// here is fatal for the component per §4.2/§7 — the caller must not
// silently skip it.
func OpenComponent(path string) (*Component, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open component: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat component: %w", err)
	}
	size := info.Size()

	if size < headerSize {
		f.Close()
		return nil, fmt.Errorf("%w: %s: file shorter than header", ErrCorruption, path)
	}

	var header [headerSize]byte
	if _, err := f.ReadAt(header[:], 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: failed to read header: %v", ErrCorruption, path, err)
	}
	numKeys := int(binary.LittleEndian.Uint32(header[0:4]))
	bloomSize := int(binary.LittleEndian.Uint32(header[4:8]))

	offsetTableEnd := int64(headerSize) + int64(numKeys)*8
	if size < offsetTableEnd+int64(bloomSize) {
		f.Close()
		return nil, fmt.Errorf("%w: %s: file too short for declared num_keys/bloom_size", ErrCorruption, path)
	}

	bloomStart := size - int64(bloomSize)
	bloomData := make([]byte, bloomSize)
	if _, err := f.ReadAt(bloomData, bloomStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: failed to read bloom trailer: %v", ErrCorruption, path, err)
	}
	bloom, err := DecodeBloomFilter(bloomData)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: invalid bloom trailer: %v", ErrCorruption, path, err)
	}

	return &Component{
		path:        path,
		file:        f,
		numKeys:     numKeys,
		bloomSize:   bloomSize,
		bloomFilter: bloom,
	}, nil
}

// offsetAt returns the absolute file offset of record idx.
func (c *Component) offsetAt(idx int) (int64, error) {
	var buf [8]byte
	if _, err := c.file.ReadAt(buf[:], int64(headerSize+idx*8)); err != nil {
		return 0, fmt.Errorf("%w: %s: failed to read offset table entry %d: %v", ErrCorruption, c.path, idx, err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// recordAt reads the full key/value record starting at the given absolute
// offset.
func (c *Component) recordAt(offset int64) (Entry, error) {
	var lenBuf [4]byte
	if _, err := c.file.ReadAt(lenBuf[:], offset); err != nil {
		return Entry{}, fmt.Errorf("%w: %s: failed to read key length at %d: %v", ErrCorruption, c.path, offset, err)
	}
	klen := binary.LittleEndian.Uint32(lenBuf[:])
	keyBuf := make([]byte, klen)
	if _, err := c.file.ReadAt(keyBuf, offset+4); err != nil {
		return Entry{}, fmt.Errorf("%w: %s: failed to read key at %d: %v", ErrCorruption, c.path, offset, err)
	}

	vOff := offset + 4 + int64(klen)
	if _, err := c.file.ReadAt(lenBuf[:], vOff); err != nil {
		return Entry{}, fmt.Errorf("%w: %s: failed to read value length at %d: %v", ErrCorruption, c.path, vOff, err)
	}
	vlen := binary.LittleEndian.Uint32(lenBuf[:])
	valBuf := make([]byte, vlen)
	if _, err := c.file.ReadAt(valBuf, vOff+4); err != nil {
		return Entry{}, fmt.Errorf("%w: %s: failed to read value at %d: %v", ErrCorruption, c.path, vOff, err)
	}

	return Entry{Key: string(keyBuf), Value: string(valBuf)}, nil
}

// keyAt reads only the key of record idx, for binary search.
func (c *Component) keyAt(idx int) (string, error) {
	offset, err := c.offsetAt(idx)
	if err != nil {
		return "", err
	}
	var lenBuf [4]byte
	if _, err := c.file.ReadAt(lenBuf[:], offset); err != nil {
		return "", fmt.Errorf("%w: %s: failed to read key length at %d: %v", ErrCorruption, c.path, offset, err)
	}
	klen := binary.LittleEndian.Uint32(lenBuf[:])
	keyBuf := make([]byte, klen)
	if _, err := c.file.ReadAt(keyBuf, offset+4); err != nil {
		return "", fmt.Errorf("%w: %s: failed to read key at %d: %v", ErrCorruption, c.path, offset, err)
	}
	return string(keyBuf), nil
}

// Get performs a bloom-gated binary search over the offset index (§4.2).
// Each probe reads only the candidate key via keyAt; the value is read once,
// from the matching record's offset.
func (c *Component) Get(key string) (string, bool, error) {
	if !c.bloomFilter.Contains(key) {
		return "", false, nil
	}

	lo, hi := 0, c.numKeys-1
	for lo <= hi {
		mid := (lo + hi) / 2
		candidate, err := c.keyAt(mid)
		if err != nil {
			return "", false, err
		}
		switch {
		case candidate == key:
			offset, err := c.offsetAt(mid)
			if err != nil {
				return "", false, err
			}
			entry, err := c.recordAt(offset)
			if err != nil {
				return "", false, err
			}
			return entry.Value, true, nil
		case candidate < key:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return "", false, nil
}

// Range linearly scans the component's records, collecting every one whose
// key falls in [start, end] (§4.2). Keys are strictly ascending, so the
// scan stops as soon as it passes end.
func (c *Component) Range(start, end string) ([]Entry, error) {
	var out []Entry
	for idx := 0; idx < c.numKeys; idx++ {
		offset, err := c.offsetAt(idx)
		if err != nil {
			return nil, err
		}
		entry, err := c.recordAt(offset)
		if err != nil {
			return nil, err
		}
		if entry.Key > end {
			break
		}
		if entry.Key >= start {
			out = append(out, entry)
		}
	}
	return out, nil
}

// IterItems returns every record in stored (ascending key) order. Used by
// merge.
func (c *Component) IterItems() ([]Entry, error) {
	out := make([]Entry, 0, c.numKeys)
	for idx := 0; idx < c.numKeys; idx++ {
		offset, err := c.offsetAt(idx)
		if err != nil {
			return nil, err
		}
		entry, err := c.recordAt(offset)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// NumKeys returns the number of records in the component.
func (c *Component) NumKeys() int {
	return c.numKeys
}

// Path returns the component's file path.
func (c *Component) Path() string {
	return c.path
}

// Close releases the component's file handle.
func (c *Component) Close() error {
	return c.file.Close()
}

// componentID extracts the numeric id from a "comp_<id>.dat" filename.
func componentID(filename string) (int, bool) {
	name := strings.TrimSuffix(filename, ".dat")
	name = strings.TrimPrefix(name, "comp_")
	if name == filename {
		return 0, false
	}
	id, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return id, true
}
