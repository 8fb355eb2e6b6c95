// Package indexdb is the public, client-facing handle over one index
// (§6 "Client API (conceptual)"). It composes the Artifact Repository
// (ingestion, visibility, workdir lifecycle) and the Query Engine
// (reads) over a single kv.Environment, and exposes exactly the
// surface §6 names: open/close, visibility registration, the query
// planners, and the two diagnostics entry points (printStats,
// dumpProviderFileAssociations).
//
// Everything here is a thin wrapper: the actual behavior lives in
// internal/repo and internal/query, which remain independently
// testable without a DB attached to them.
package indexdb
