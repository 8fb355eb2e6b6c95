package schema

// Roles is a bitmask of the ways a provider contributes to a USR at a
// given location (declaration, definition, reference, ...) plus the
// relation roles used for override/base/call-graph traversal.
type Roles uint64

const (
	RoleDeclaration Roles = 1 << iota
	RoleDefinition
	RoleReference
	RoleRead
	RoleWrite
	RoleCall
	RoleDynamic
	RoleAddressOf
	RoleImplicit
	RoleCanonical
	RoleUnitTest

	// Relation roles: these mark an occurrence as also describing a
	// relationship to another USR, carried in the "related roles" mask.
	RelationChildOf
	RelationBaseOf
	RelationOverrideOf
	RelationReceivedBy
	RelationCalledBy
	RelationExtendedBy
	RelationAccessorOf
	RelationContainedBy
)

// Intersects reports whether r shares any bit with mask. An empty
// mask is treated as "match everything", per §4.3's
// lookup_providers_for_usr filter semantics.
func (r Roles) Intersects(mask Roles) bool {
	if mask == 0 {
		return true
	}
	return r&mask != 0
}

// Has reports whether r has every bit set in mask.
func (r Roles) Has(mask Roles) bool {
	return r&mask == mask
}

// GlobalSymbolKind is the coarse kind used for kind-indexed enumeration
// (usrs-by-global-kind) and the test-symbol union.
type GlobalSymbolKind uint32

const (
	KindInvalid GlobalSymbolKind = iota
	KindClass
	KindStruct
	KindProtocol
	KindFunction
	KindGlobalVar
	KindTypeAlias
	KindEnum
	KindUnion
	KindTestClassOrExtension
	KindTestMethod
	KindCommentTag
)

// ProviderKind distinguishes the compiler front end that produced a
// provider's record, mirroring indexstore-db's record-kind tag; the
// core treats it as opaque beyond storage and display.
type ProviderKind uint32

const (
	ProviderKindUnknown ProviderKind = iota
	ProviderKindClang
	ProviderKindSwift
	ProviderKindCombined
)

// UnitFlags packs the per-unit boolean attributes from §3.
type UnitFlags uint32

const (
	UnitHasMainFile UnitFlags = 1 << iota
	UnitHasSysroot
	UnitIsSystem
	UnitHasTestSymbols
)

func (f UnitFlags) Has(bit UnitFlags) bool { return f&bit != 0 }

func (f *UnitFlags) Set(bit UnitFlags, v bool) {
	if v {
		*f |= bit
	} else {
		*f &^= bit
	}
}
