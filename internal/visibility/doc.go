// Package visibility implements the Visibility Filter of §4.8: the
// set of client-declared "in scope" units/outputs that post-filters
// every Query Engine result. Root-reachability is memoized per unit in
// an LRU cache that is flushed wholesale whenever the visible sets
// change, per §4.8's explicit caching rule.
package visibility
