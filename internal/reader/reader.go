// Package reader defines the external artifact-reader contract named
// in §6: the core treats compiler-emitted unit and record files as
// opaque and only ever consumes them through this interface. A real
// implementation (decoding the compiler's binary record/unit formats)
// is out of scope per §1; this package holds only the interface and
// an in-memory Fake used by tests and the CLI's demo importer.
package reader

import "github.com/cuemby/indexdb/internal/schema"

// DependencyKind classifies one entry of a decoded unit's dependency
// list (§4.5 step 2).
type DependencyKind int

const (
	DependencyRecord DependencyKind = iota
	DependencyUnit
	DependencyFile
)

// Dependency is one element of DecodedUnit.Dependencies.
type Dependency struct {
	Kind DependencyKind

	// RecordName is set for DependencyRecord: the provider this
	// dependency decodes symbols from.
	RecordName string

	// UnitName is set for DependencyUnit.
	UnitName string

	// FilePath is the source file this dependency associates with the
	// unit. For DependencyFile it is the whole dependency; for
	// DependencyRecord it is the file the record's symbols belong to
	// (the ProviderDependency.FileCode source).
	FilePath string

	// ModuleName, NanoTime, IsSystem are only meaningful for
	// DependencyRecord: the provider-files association fields (§4.2
	// table 9).
	ModuleName string
	NanoTime   int64
	IsSystem   bool
}

// DecodedSymbol is one symbol occurrence a record contributes.
type DecodedSymbol struct {
	USR          string
	Name         string
	Roles        schema.Roles
	RelatedRoles schema.Roles
	Info         schema.SymbolInfo
}

// DecodedUnit is the fully-decoded form of one unit artifact (§3
// "Unit" entity), as the external reader hands it to the Unit
// Importer.
type DecodedUnit struct {
	Name         string
	ModTimeNanos int64
	MainFilePath string // empty if the unit has no main file
	OutFilePath  string
	SysrootPath  string // empty if the unit has no sysroot
	Target       string
	IsSystem     bool
	ProviderKind schema.ProviderKind
	Dependencies []Dependency
}

// Reader is the external artifact-reader contract. A ReaderError
// (§7) during ReadUnit or ReadRecordSymbols is handled by the caller:
// log and skip the affected unit, committing without its contributions.
type Reader interface {
	// ReadUnit decodes the unit artifact named unitName.
	ReadUnit(unitName string) (*DecodedUnit, error)

	// ReadRecordSymbols decodes the symbol occurrences held by the
	// record (provider) named recordName.
	ReadRecordSymbols(recordName string) ([]DecodedSymbol, error)
}
