package schema

// SymbolInfo carries the decoded-symbol metadata add_symbol_info needs
// beyond (usr, roles, relatedRoles) to decide which secondary indices
// to populate (§4.4): the coarse kind for usrs-by-global-kind, and
// whether the occurrence is a unit-test class/extension or method for
// the TestClassOrExtension/TestMethod union.
type SymbolInfo struct {
	Kind GlobalSymbolKind

	// IsUnitTestProperty mirrors the external reader's "UnitTest"
	// language property: true for ObjC/XCTest-style test classes,
	// class extensions adding test methods, and test instance methods.
	IsUnitTestProperty bool

	// IsClassLike distinguishes, among IsUnitTestProperty symbols,
	// those that belong in TestClassOrExtension (classes and category/
	// extension declarations) from instance methods (TestMethod).
	IsClassLike bool

	// EligibleForGlobalNameSearch gates the usrs-by-symbol-name insert
	// (§4.4): some occurrences — e.g. implicit or compiler-synthesized
	// symbols — are excluded from name search even though they still
	// get a providers-by-usr entry.
	EligibleForGlobalNameSearch bool

	// DeclarationIsCanonical marks languages/kinds where the
	// declaration (not the definition) is the canonical occurrence —
	// ObjC classes, extensions, and properties per §4.7.
	DeclarationIsCanonical bool
}
