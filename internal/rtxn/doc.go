// Package rtxn implements the Read Transaction of §4.3: a read-only
// snapshot of the schema that exposes lookup, iteration, and join
// primitives over the thirteen sub-databases. Every method takes the
// *kv.ReadTxn a caller obtained from Environment.View and is only
// valid for that callback's lifetime — slices returned from it are
// borrowed from the snapshot and must not be retained past it.
package rtxn
