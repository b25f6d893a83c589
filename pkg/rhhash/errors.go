package rhhash

import "errors"

// Error classification codes.
//
// Callers MUST classify errors using errors.Is. None of these are retried
// internally and none leave the table partially mutated.
var (
	// ErrParam indicates New was given a capacity of zero, negative, or
	// larger than the permissible index range.
	ErrParam = errors.New("rhhash: invalid capacity")

	// ErrOOM indicates the backing slot array could not be allocated.
	// No partial table is returned when this occurs.
	ErrOOM = errors.New("rhhash: allocation failed")

	// ErrTableFull indicates Add could not locate a vacant slot to host a
	// new entry. The table is left unchanged.
	ErrTableFull = errors.New("rhhash: table full")

	// ErrDuplicateCID indicates Add(overwrite=false) was called for a CID
	// that already has an occupied slot.
	ErrDuplicateCID = errors.New("rhhash: duplicate cid")

	// ErrCIDNotFound indicates Remove or Peek found no matching entry.
	ErrCIDNotFound = errors.New("rhhash: cid not found")
)
