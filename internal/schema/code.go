package schema

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Code is a 64-bit stable hash of a string, used as the foreign key
// for every relational join in the index. Equality of Codes is
// treated as equality of the strings that produced them; a conforming
// implementation may widen this to 128 bits without a schema-breaking
// change other than bumping FormatVersion.
type Code uint64

// ZeroCode is the sentinel value for "no value" foreign keys, e.g. a
// unit with no sysroot or an empty module name.
const ZeroCode Code = 0

// IDCode computes the canonical 64-bit hash of s. It must be stable
// across processes and across runs of the same process.
func IDCode(s string) Code {
	return Code(xxhash.Sum64String(s))
}

// Bytes returns the big-endian encoding of c, suitable as a bbolt
// bucket key so that byte-lexicographic ordering matches unsigned
// numeric ordering.
func (c Code) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(c))
	return b[:]
}

// CodeFromBytes decodes a big-endian Code key. It panics if b is
// shorter than 8 bytes, matching the invariant that every Code key in
// the store is exactly 8 bytes; callers reading from bbolt buckets we
// wrote ourselves can rely on this.
func CodeFromBytes(b []byte) Code {
	return Code(binary.BigEndian.Uint64(b[:8]))
}
