package kv

import (
	"bytes"

	bolt "go.etcd.io/bbolt"
)

// DupBucket emulates an LMDB-style sorted-duplicate sub-database on
// top of bbolt, which has no native multi-value-per-key support. Each
// outer key becomes a nested bucket; the "duplicate" values become
// keys inside that nested bucket, sorted lexicographically the way
// LMDB sorts duplicate items for a key.
//
// This mirrors two of the schema's thirteen DBIs directly
// (providers-by-usr, provider-files) and is reused for the other
// multi-value tables (usrs-by-symbol-name, usrs-by-global-kind,
// filepaths-by-dir, unit-by-file-dep, unit-by-unit-dep) since bbolt
// gives us no cheaper alternative.
type DupBucket struct {
	outer *bolt.Bucket
}

// Put inserts or updates dupKey -> value under outer key k. If an
// entry with the same dupKey already exists its value is overwritten,
// matching DUPSORT-with-custom-comparator semantics where the
// comparator only orders by a prefix of the value and later fields are
// free to change in place (§4.2 table entries 1 and 9).
func (d *DupBucket) Put(k, dupKey, value []byte) error {
	inner, err := d.outer.CreateBucketIfNotExists(k)
	if err != nil {
		return err
	}
	return inner.Put(dupKey, value)
}

// Get returns the value stored for (k, dupKey), or nil if absent.
func (d *DupBucket) Get(k, dupKey []byte) []byte {
	inner := d.outer.Bucket(k)
	if inner == nil {
		return nil
	}
	return inner.Get(dupKey)
}

// Delete removes the single (k, dupKey) duplicate. It reports how many
// duplicates the outer key has remaining afterward, and removes the
// now-empty nested bucket entirely so a subsequent ForEach(k)
// correctly sees zero entries.
func (d *DupBucket) Delete(k, dupKey []byte) (remaining int, err error) {
	inner := d.outer.Bucket(k)
	if inner == nil {
		return 0, nil
	}
	if err := inner.Delete(dupKey); err != nil {
		return 0, err
	}
	// Count with a cursor: it sees this transaction's own writes.
	c := inner.Cursor()
	for dk, _ := c.First(); dk != nil; dk, _ = c.Next() {
		remaining++
	}
	if remaining == 0 {
		if err := d.outer.DeleteBucket(k); err != nil && err != bolt.ErrBucketNotFound {
			return 0, err
		}
	}
	return remaining, nil
}

// Count returns the number of duplicates stored under k.
func (d *DupBucket) Count(k []byte) int {
	inner := d.outer.Bucket(k)
	if inner == nil {
		return 0
	}
	return inner.Stats().KeyN
}

// ForEach iterates every (dupKey, value) pair under outer key k in
// dupKey-sorted order, stopping early if fn returns false — the
// cooperative-cancellation contract every §4.3 iterator follows.
func (d *DupBucket) ForEach(k []byte, fn func(dupKey, value []byte) bool) {
	inner := d.outer.Bucket(k)
	if inner == nil {
		return
	}
	c := inner.Cursor()
	for dk, v := c.First(); dk != nil; dk, v = c.Next() {
		if !fn(dk, v) {
			return
		}
	}
}

// ForEachFrom iterates (dupKey, value) pairs under k starting at the
// first dupKey >= from (bbolt Cursor.Seek semantics), the SET_KEY +
// NEXT cursor primitive.
func (d *DupBucket) ForEachFrom(k, from []byte, fn func(dupKey, value []byte) bool) {
	inner := d.outer.Bucket(k)
	if inner == nil {
		return
	}
	c := inner.Cursor()
	for dk, v := c.Seek(from); dk != nil; dk, v = c.Next() {
		if !fn(dk, v) {
			return
		}
	}
}

// ForEachOuter iterates every outer key in the DupBucket in
// lexicographic order, stopping early if fn returns false. Used for
// full-table scans (e.g. find_filenames_containing over
// filename-by-code, which is a plain Bucket not a DupBucket, but the
// same cooperative-cancellation shape is reused by usrs-by-symbol-name
// scans here).
func (d *DupBucket) ForEachOuter(fn func(k []byte) bool) {
	c := d.outer.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if v != nil {
			// Not a nested bucket — skip (shouldn't happen for a
			// well-formed DupBucket).
			continue
		}
		if !fn(k) {
			return
		}
	}
}

// HasPrefix reports whether k starts with prefix; a small byte-prefix
// helper for key scans.
func HasPrefix(k, prefix []byte) bool {
	return bytes.HasPrefix(k, prefix)
}
