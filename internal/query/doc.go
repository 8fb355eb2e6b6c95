// Package query implements the Query Engine of §4.7: planners layered
// over internal/rtxn that join providers, symbols, and units into the
// canonical occurrences clients ask for, post-filtered through
// internal/visibility per §4.8.
package query
