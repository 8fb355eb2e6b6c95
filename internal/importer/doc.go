// Package importer implements the Unit Importer state machine of
// §4.5: per-unit (name, observed modtime) upsert that diffs the
// previous dependency sets against the newly decoded ones and emits
// the minimal set of schema mutations, all inside a single
// kv.Environment.WithMapFullRetry write transaction so readers never
// observe a dangling foreign key.
package importer
