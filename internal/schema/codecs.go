package schema

import "encoding/binary"

// This file holds the small fixed-size value codecs for the
// sub-databases whose payload is not itself a UnitInfo blob (see
// unitinfo.go for that one). Each pairs with the bucket of the same
// name in dbi.go; internal/kv's DupBucket treats the "dup key" as the
// part of a composite key the dup-sort comparator orders on, and the
// encoded value here as the (possibly further-composite) payload.

// EncodeProviderUSRValue packs the (Roles, RelatedRoles) payload
// stored alongside a providers-by-usr duplicate (§4.2 table 1). The
// dup key is the provider's Code; this 16-byte value is everything the
// custom comparator is specified to ignore when ordering, so
// overwriting it in place never reorders the duplicate.
func EncodeProviderUSRValue(roles, relatedRoles Roles) []byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], uint64(roles))
	binary.BigEndian.PutUint64(b[8:16], uint64(relatedRoles))
	return b[:]
}

// DecodeProviderUSRValue is the inverse of EncodeProviderUSRValue.
func DecodeProviderUSRValue(v []byte) (roles, relatedRoles Roles) {
	return Roles(binary.BigEndian.Uint64(v[0:8])), Roles(binary.BigEndian.Uint64(v[8:16]))
}

// ProviderFileDupKey returns the 16-byte composite dup key
// (FileCode, UnitCode) for provider-files (§4.2 table 9, §3 invariant
// 3): the comparator orders by this prefix only.
func ProviderFileDupKey(file, unit Code) []byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], uint64(file))
	binary.BigEndian.PutUint64(b[8:16], uint64(unit))
	return b[:]
}

// DecodeProviderFileDupKey is the inverse of ProviderFileDupKey.
func DecodeProviderFileDupKey(k []byte) (file, unit Code) {
	return Code(binary.BigEndian.Uint64(k[0:8])), Code(binary.BigEndian.Uint64(k[8:16]))
}

// EncodeProviderFileValue packs the "auxiliary" fields of a
// provider-files entry that the dup-sort comparator ignores:
// ModuleNameCode, NanoTime, IsSystem. Re-writing this value in place
// for an existing (FileCode, UnitCode) dup key is how modtime updates
// avoid becoming a second duplicate (§4.4 add_file_association_for_provider).
func EncodeProviderFileValue(moduleNameCode Code, nanoTime int64, isSystem bool) []byte {
	var b [17]byte
	binary.BigEndian.PutUint64(b[0:8], uint64(moduleNameCode))
	binary.BigEndian.PutUint64(b[8:16], uint64(nanoTime))
	if isSystem {
		b[16] = 1
	}
	return b[:]
}

// DecodeProviderFileValue is the inverse of EncodeProviderFileValue.
func DecodeProviderFileValue(v []byte) (moduleNameCode Code, nanoTime int64, isSystem bool) {
	moduleNameCode = Code(binary.BigEndian.Uint64(v[0:8]))
	nanoTime = int64(binary.BigEndian.Uint64(v[8:16]))
	isSystem = v[16] != 0
	return
}

// EncodeFilenameValue packs filename-by-code's value: the parent
// directory's Code followed by the raw basename bytes (§4.2 table 7).
func EncodeFilenameValue(dirCode Code, basename string) []byte {
	b := make([]byte, 8+len(basename))
	binary.BigEndian.PutUint64(b[0:8], uint64(dirCode))
	copy(b[8:], basename)
	return b
}

// DecodeFilenameValue is the inverse of EncodeFilenameValue.
func DecodeFilenameValue(v []byte) (dirCode Code, basename string) {
	dirCode = Code(binary.BigEndian.Uint64(v[0:8]))
	basename = string(v[8:])
	return
}

// EncodeKindKey encodes the usrs-by-global-kind key (§4.2 table 5).
func EncodeKindKey(kind GlobalSymbolKind) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(kind))
	return b[:]
}
