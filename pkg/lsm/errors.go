package lsm

import "errors"

var (
	// ErrInvalidBloomFilter is returned when bloom filter data is invalid
	ErrInvalidBloomFilter = errors.New("invalid bloom filter data")

	// ErrInvalidValue is returned when the caller passes the reserved
	// tombstone literal to Insert.
	ErrInvalidValue = errors.New("lsm: value equals the reserved tombstone marker")

	// ErrClosed is returned when operation is attempted on a closed table.
	ErrClosed = errors.New("lsm tree is closed")

	// ErrCorruption is returned when a component file fails structural
	// validation on open, or a merge detects a key-ordering violation.
	ErrCorruption = errors.New("lsm: component is corrupt")
)
