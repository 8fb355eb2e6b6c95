// Package kv is the KV Store Adapter: it owns the single bbolt file
// backing an Environment, creates the sub-databases from
// internal/schema on first open, and emulates the two pieces of
// LMDB-style behavior bbolt itself doesn't have:
//
//   - Sorted-duplicate pages (DUPSORT), via a nested bucket per outer
//     key (see DupBucket in dup.go).
//   - A MapFull condition with an explicit doubling-retry protocol
//     (see Environment.IncreaseMapSize and WithMapFullRetry in
//     environment.go), modeled as a caller-configured policy cap
//     compared against bbolt's own reported transaction size, since
//     bbolt's real mmap already grows on demand and never actually
//     runs out of space on its own.
//
// Every other package in this module (internal/rtxn, internal/wtxn,
// internal/importer, internal/repo) talks to the store exclusively
// through this package; nothing else imports go.etcd.io/bbolt
// directly.
package kv
