package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/indexdb/internal/reader"
	"github.com/cuemby/indexdb/internal/schema"
)

// jsonUnit is the on-disk shape of a unit artifact for this CLI's demo
// store format: the real compiler-emitted binary format is out of
// scope (§1, §6), so the CLI reads a unit artifact as a JSON document
// named after the unit, matching reader.DecodedUnit field-for-field.
type jsonUnit struct {
	ModTimeNanos int64            `json:"modTimeNanos"`
	MainFilePath string           `json:"mainFilePath,omitempty"`
	OutFilePath  string           `json:"outFilePath"`
	SysrootPath  string           `json:"sysrootPath,omitempty"`
	Target       string           `json:"target,omitempty"`
	IsSystem     bool             `json:"isSystem,omitempty"`
	ProviderKind string           `json:"providerKind,omitempty"`
	Dependencies []jsonDependency `json:"dependencies"`
}

type jsonDependency struct {
	Kind       string `json:"kind"` // "record", "unit", or "file"
	RecordName string `json:"recordName,omitempty"`
	UnitName   string `json:"unitName,omitempty"`
	FilePath   string `json:"filePath"`
	ModuleName string `json:"moduleName,omitempty"`
	NanoTime   int64  `json:"nanoTime,omitempty"`
	IsSystem   bool   `json:"isSystem,omitempty"`
}

type jsonSymbol struct {
	USR                         string `json:"usr"`
	Name                        string `json:"name"`
	Roles                       uint64 `json:"roles"`
	RelatedRoles                uint64 `json:"relatedRoles"`
	Kind                        string `json:"kind,omitempty"`
	IsUnitTestProperty          bool   `json:"isUnitTestProperty,omitempty"`
	IsClassLike                 bool   `json:"isClassLike,omitempty"`
	EligibleForGlobalNameSearch bool   `json:"eligibleForGlobalNameSearch,omitempty"`
	DeclarationIsCanonical      bool   `json:"declarationIsCanonical,omitempty"`
}

// fsReader implements reader.Reader by reading a unit artifact as
// <storeDir>/<unitName> and a record's symbols as
// <storeDir>/records/<recordName>.json, the minimal on-disk stand-in
// this CLI needs to exercise the rest of the system end to end.
type fsReader struct {
	storeDir string
}

func newFSReader(storeDir string) *fsReader {
	return &fsReader{storeDir: storeDir}
}

func (f *fsReader) ReadUnit(unitName string) (*reader.DecodedUnit, error) {
	data, err := os.ReadFile(filepath.Join(f.storeDir, unitName))
	if err != nil {
		return nil, fmt.Errorf("artifact: read unit %s: %w", unitName, err)
	}
	var ju jsonUnit
	if err := json.Unmarshal(data, &ju); err != nil {
		return nil, fmt.Errorf("artifact: decode unit %s: %w", unitName, err)
	}

	deps := make([]reader.Dependency, 0, len(ju.Dependencies))
	for _, d := range ju.Dependencies {
		dep := reader.Dependency{
			RecordName: d.RecordName,
			UnitName:   d.UnitName,
			FilePath:   d.FilePath,
			ModuleName: d.ModuleName,
			NanoTime:   d.NanoTime,
			IsSystem:   d.IsSystem,
		}
		switch d.Kind {
		case "unit":
			dep.Kind = reader.DependencyUnit
		case "file":
			dep.Kind = reader.DependencyFile
		default:
			dep.Kind = reader.DependencyRecord
		}
		deps = append(deps, dep)
	}

	return &reader.DecodedUnit{
		Name:         unitName,
		ModTimeNanos: ju.ModTimeNanos,
		MainFilePath: ju.MainFilePath,
		OutFilePath:  ju.OutFilePath,
		SysrootPath:  ju.SysrootPath,
		Target:       ju.Target,
		IsSystem:     ju.IsSystem,
		ProviderKind: decodeProviderKind(ju.ProviderKind),
		Dependencies: deps,
	}, nil
}

func (f *fsReader) ReadRecordSymbols(recordName string) ([]reader.DecodedSymbol, error) {
	path := filepath.Join(f.storeDir, "records", recordName+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: read record %s: %w", recordName, err)
	}
	var syms []jsonSymbol
	if err := json.Unmarshal(data, &syms); err != nil {
		return nil, fmt.Errorf("artifact: decode record %s: %w", recordName, err)
	}

	out := make([]reader.DecodedSymbol, 0, len(syms))
	for _, s := range syms {
		out = append(out, reader.DecodedSymbol{
			USR:          s.USR,
			Name:         s.Name,
			Roles:        schema.Roles(s.Roles),
			RelatedRoles: schema.Roles(s.RelatedRoles),
			Info: schema.SymbolInfo{
				Kind:                        decodeSymbolKind(s.Kind),
				IsUnitTestProperty:          s.IsUnitTestProperty,
				IsClassLike:                 s.IsClassLike,
				EligibleForGlobalNameSearch: s.EligibleForGlobalNameSearch,
				DeclarationIsCanonical:      s.DeclarationIsCanonical,
			},
		})
	}
	return out, nil
}

func decodeProviderKind(s string) schema.ProviderKind {
	switch s {
	case "clang":
		return schema.ProviderKindClang
	case "swift":
		return schema.ProviderKindSwift
	case "combined":
		return schema.ProviderKindCombined
	default:
		return schema.ProviderKindUnknown
	}
}
