// Package repo implements the Artifact Repository of §4.6: it watches
// a directory of compiler-emitted unit artifacts, drives the Unit
// Importer, deletes vanished units, and maintains a per-unit monitor
// graph that propagates out-of-date notifications to a delegate
// (pkg/events) whenever a dependency's source file changes underfoot.
//
// It also owns the on-disk pid-scoped workdir protocol of §6: every
// non-readonly Open claims root/v<N>/saved as a private
// p<pid>-<uniq>/ directory for the lifetime of the process, and a
// background sweep reclaims directories abandoned by a crash.
package repo
