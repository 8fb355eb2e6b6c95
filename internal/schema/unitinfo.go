package schema

import (
	"encoding/binary"
	"fmt"
)

// ProviderDependency is one element of a unit's ProviderDepends array:
// the provider plus the file it was associated with for this unit.
type ProviderDependency struct {
	ProviderCode Code
	FileCode     Code
}

// UnitInfo is the full decoded record stored in unit-info-by-code
// (§4.2 table entry 10, §3 "Unit" entity, §4.5 step 5).
type UnitInfo struct {
	Name             string
	MainFileCode     Code
	OutFileCode      Code
	SysrootCode      Code
	TargetCode       Code
	ModTimeNanos     int64
	Flags            UnitFlags
	ProviderKind     ProviderKind
	FileDepends      []Code
	UnitDepends      []Code
	ProviderDepends  []ProviderDependency
}

// HasMainFile, HasSysroot, IsSystem, HasTestSymbols mirror the Flags
// bits for convenient read access.
func (u *UnitInfo) HasMainFile() bool     { return u.Flags.Has(UnitHasMainFile) }
func (u *UnitInfo) HasSysroot() bool      { return u.Flags.Has(UnitHasSysroot) }
func (u *UnitInfo) IsSystem() bool        { return u.Flags.Has(UnitIsSystem) }
func (u *UnitInfo) HasTestSymbols() bool  { return u.Flags.Has(UnitHasTestSymbols) }

// headerSize is the fixed portion of the packed encoding, in bytes:
// 4 Codes (32) + ModTimeNanos (8) + Flags (4) + ProviderKind (4) +
// three length fields (12) + NameLen (4) = 64, a multiple of 8 so the
// three dependency arrays that follow start on an 8-byte boundary.
const headerSize = 64

const providerDepSize = 16 // ProviderCode + FileCode, both 8 bytes

// EncodeUnitInfo serializes u into the packed byte layout described in
// §4.2/§4.4/§9: a fixed aligned header, then FileDepends, UnitDepends,
// ProviderDepends as flat uint64/128-bit arrays, then the raw name
// bytes, with trailing zero padding so the total length is a multiple
// of 8. That padding is what lets a reader treat the returned value's
// header and embedded arrays as directly addressable aligned slices
// instead of copying every field out.
func EncodeUnitInfo(u *UnitInfo) []byte {
	nameBytes := []byte(u.Name)
	fileDepsLen := len(u.FileDepends) * 8
	unitDepsLen := len(u.UnitDepends) * 8
	providerDepsLen := len(u.ProviderDepends) * providerDepSize

	total := headerSize + fileDepsLen + unitDepsLen + providerDepsLen + len(nameBytes)
	if rem := total % 8; rem != 0 {
		total += 8 - rem
	}

	buf := make([]byte, total)
	order := binary.NativeEndian

	order.PutUint64(buf[0:8], uint64(u.MainFileCode))
	order.PutUint64(buf[8:16], uint64(u.OutFileCode))
	order.PutUint64(buf[16:24], uint64(u.SysrootCode))
	order.PutUint64(buf[24:32], uint64(u.TargetCode))
	order.PutUint64(buf[32:40], uint64(u.ModTimeNanos))
	order.PutUint32(buf[40:44], uint32(u.Flags))
	order.PutUint32(buf[44:48], uint32(u.ProviderKind))
	order.PutUint32(buf[48:52], uint32(len(u.FileDepends)))
	order.PutUint32(buf[52:56], uint32(len(u.UnitDepends)))
	order.PutUint32(buf[56:60], uint32(len(u.ProviderDepends)))
	order.PutUint32(buf[60:64], uint32(len(nameBytes)))

	off := headerSize
	for _, c := range u.FileDepends {
		order.PutUint64(buf[off:off+8], uint64(c))
		off += 8
	}
	for _, c := range u.UnitDepends {
		order.PutUint64(buf[off:off+8], uint64(c))
		off += 8
	}
	for _, p := range u.ProviderDepends {
		order.PutUint64(buf[off:off+8], uint64(p.ProviderCode))
		order.PutUint64(buf[off+8:off+16], uint64(p.FileCode))
		off += providerDepSize
	}
	copy(buf[off:off+len(nameBytes)], nameBytes)

	return buf
}

// DecodeUnitInfo parses the packed layout EncodeUnitInfo produces. It
// copies every field into aligned Go-native locals; callers must never
// assume the byte slice itself is aligned, since the KV Store Adapter
// may hand back a value view that begins at an arbitrary page offset.
func DecodeUnitInfo(buf []byte) (*UnitInfo, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("schema: unit info buffer too small: %d bytes", len(buf))
	}
	order := binary.NativeEndian

	u := &UnitInfo{
		MainFileCode: Code(order.Uint64(buf[0:8])),
		OutFileCode:  Code(order.Uint64(buf[8:16])),
		SysrootCode:  Code(order.Uint64(buf[16:24])),
		TargetCode:   Code(order.Uint64(buf[24:32])),
		ModTimeNanos: int64(order.Uint64(buf[32:40])),
		Flags:        UnitFlags(order.Uint32(buf[40:44])),
		ProviderKind: ProviderKind(order.Uint32(buf[44:48])),
	}
	numFileDeps := int(order.Uint32(buf[48:52]))
	numUnitDeps := int(order.Uint32(buf[52:56]))
	numProviderDeps := int(order.Uint32(buf[56:60]))
	nameLen := int(order.Uint32(buf[60:64]))

	off := headerSize
	need := off + numFileDeps*8 + numUnitDeps*8 + numProviderDeps*providerDepSize + nameLen
	if len(buf) < need {
		return nil, fmt.Errorf("schema: unit info buffer truncated: need %d, have %d", need, len(buf))
	}

	u.FileDepends = make([]Code, numFileDeps)
	for i := 0; i < numFileDeps; i++ {
		u.FileDepends[i] = Code(order.Uint64(buf[off : off+8]))
		off += 8
	}
	u.UnitDepends = make([]Code, numUnitDeps)
	for i := 0; i < numUnitDeps; i++ {
		u.UnitDepends[i] = Code(order.Uint64(buf[off : off+8]))
		off += 8
	}
	u.ProviderDepends = make([]ProviderDependency, numProviderDeps)
	for i := 0; i < numProviderDeps; i++ {
		u.ProviderDepends[i] = ProviderDependency{
			ProviderCode: Code(order.Uint64(buf[off : off+8])),
			FileCode:     Code(order.Uint64(buf[off+8 : off+16])),
		}
		off += providerDepSize
	}
	u.Name = string(buf[off : off+nameLen])

	return u, nil
}
