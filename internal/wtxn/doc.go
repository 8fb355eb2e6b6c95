// Package wtxn implements the Import Transaction of §4.4: the single
// writable snapshot exposing upsert mutators that maintain the
// referential-integrity rules between units, providers, files, and
// symbols. Only one Writer is ever live at a time, matching bbolt's
// own single-writer Update serialization.
package wtxn
