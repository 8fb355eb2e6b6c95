package kv

import bolt "go.etcd.io/bbolt"

// ReadTxn is a single read-only view of the environment, handed to
// internal/rtxn's primitives. It is only valid for the lifetime of the
// callback passed to Environment.View.
type ReadTxn struct {
	tx *bolt.Tx
}

// Bucket returns the named top-level sub-database for single-value
// gets, or nil if it somehow doesn't exist (it always does after Open
// succeeds).
func (r *ReadTxn) Bucket(name []byte) *bolt.Bucket {
	return r.tx.Bucket(name)
}

// Dup opens name as a multi-value (DUPSORT-emulating) sub-database for
// reading. See DupBucket.
func (r *ReadTxn) Dup(name []byte) *DupBucket {
	return &DupBucket{outer: r.tx.Bucket(name)}
}

// WriteTxn is a single read-write view of the environment, handed to
// internal/wtxn's mutators. Only one WriteTxn is ever live at a time —
// bbolt serializes Update calls — matching §4.1's single-writer rule.
type WriteTxn struct {
	tx *bolt.Tx
}

// Bucket returns the named top-level sub-database for single-value
// reads and writes.
func (w *WriteTxn) Bucket(name []byte) *bolt.Bucket {
	return w.tx.Bucket(name)
}

// Dup opens name as a multi-value (DUPSORT-emulating) sub-database for
// writing, creating the outer bucket's nested buckets on demand.
func (w *WriteTxn) Dup(name []byte) *DupBucket {
	return &DupBucket{outer: w.tx.Bucket(name)}
}

// Size returns bbolt's own report of the transaction's net database
// size, the same figure Environment.Update checks to detect MapFull.
func (w *WriteTxn) Size() int64 {
	return w.tx.Size()
}
