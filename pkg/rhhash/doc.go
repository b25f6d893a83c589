// Package rhhash provides a fixed-capacity, Robin-Hood-displacing hash
// table for tracking in-flight DTN bundles awaiting custody acknowledgement.
//
// rhhash is not a general-purpose map. It is purpose-built for a bundle
// agent's active-bundle table: entries are keyed by a custody identifier
// (CID) assigned by the local custodian, carry an opaque storage identifier
// (SID) pointing at a persisted bundle body elsewhere, and the table must
// support looking entries up by CID and replaying them oldest-first for
// retransmission. Capacity is fixed at construction; there is no growth, no
// rehashing, and no allocation after New returns.
//
// # Basic usage
//
//	table, err := rhhash.New(1024)
//	if err != nil {
//	    // ErrParam: bad capacity. ErrOOM: allocation failed.
//	}
//	defer table.Close()
//
//	err = table.Add(rhhash.Bundle{CID: 1, SID: 10}, false)
//	b, err := table.Peek()   // oldest in-flight bundle
//	b, err = table.Remove(1) // acknowledgement arrived
//
// # Concurrency
//
// rhhash is single-owner. No method is safe for concurrent use from
// multiple goroutines without external synchronization; the caller
// typically holds one lock per table for the duration of a call, the same
// way a bundle agent would hold its channel's bundle-store lock. Distinct
// tables are fully independent.
//
// # Error handling
//
// Errors fall into two categories:
//
// Construction errors ([ErrParam], [ErrOOM]): New returns no usable table;
// there is nothing to recover.
//
// Operational errors ([ErrTableFull], [ErrDuplicateCID], [ErrCIDNotFound]):
// expected outcomes the caller decides policy on. None of them leave the
// table mutated.
package rhhash
