// Package log provides structured logging built on zerolog.
//
// A single global Logger is configured once via Init and every
// subsystem derives a child logger from it with WithComponent or one
// of the entity-scoped helpers (WithDB, WithUnit, WithProvider) so
// that log lines carry consistent structured fields instead of
// free-text context.
package log
