package kv

import "errors"

// ErrMapFull is returned from a write transaction whose net size would
// exceed the environment's current policy map size cap. The caller is
// expected to call Environment.IncreaseMapSize and retry the same
// write from scratch; WithMapFullRetry implements that loop directly.
var ErrMapFull = errors.New("kv: map full")

// ErrTooManyGrowths is wrapped around ErrMapFull once a write has
// retried past the configured growth cap (§4.6, default 6 doublings)
// without succeeding.
var ErrTooManyGrowths = errors.New("kv: exceeded max map growths")

// ErrFormatVersionMismatch names the FormatVersionMismatch condition
// (§3 invariant 7, §7 FormatVersionMismatch). Open does not return it:
// internal/repo keeps each format version under its own v<N>/
// directory, so a store of another version is never opened.
var ErrFormatVersionMismatch = errors.New("kv: format version mismatch")
