// Package schema defines the on-disk key/value layout of the symbol
// index: the 64-bit IDCode hash used as the canonical join key, the
// thirteen named sub-databases and their key/value shapes, and the
// packed binary codec for UnitInfo.
//
// Keys that are IDCodes are always serialized big-endian. bbolt orders
// bucket keys by raw byte comparison, not by native integer value, so
// big-endian encoding is what makes that byte ordering coincide with
// the unsigned numeric ordering §3 of the spec requires for
// integer-keyed tables.
package schema
