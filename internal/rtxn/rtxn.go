package rtxn

import (
	"github.com/cuemby/indexdb/internal/kv"
	"github.com/cuemby/indexdb/internal/schema"
)

// Reader wraps a *kv.ReadTxn with the join/iteration primitives of
// §4.3. Construct one with New inside an Environment.View callback;
// it and everything it returns is only valid for that callback.
type Reader struct {
	tx *kv.ReadTxn
}

// New wraps tx in a Reader.
func New(tx *kv.ReadTxn) *Reader { return &Reader{tx: tx} }

// ProviderUSR is one match yielded by LookupProvidersForUSR.
type ProviderUSR struct {
	Provider     schema.Code
	Roles        schema.Roles
	RelatedRoles schema.Roles
}

// LookupProvidersForUSR iterates providers-by-usr for usr, filtering
// on roles/relatedRoles per §4.3: an empty mask matches everything,
// otherwise the entry must intersect it. fn returning false stops the
// scan (ReceiverAborted, not an error — §7).
func (r *Reader) LookupProvidersForUSR(usr schema.Code, roles, relatedRoles schema.Roles, fn func(ProviderUSR) bool) {
	dup := r.tx.Dup(schema.BucketProvidersByUSR)
	dup.ForEach(usr.Bytes(), func(dupKey, value []byte) bool {
		pr, rr := schema.DecodeProviderUSRValue(value)
		if !pr.Intersects(roles) || !rr.Intersects(relatedRoles) {
			return true
		}
		return fn(ProviderUSR{
			Provider:     schema.CodeFromBytes(dupKey),
			Roles:        pr,
			RelatedRoles: rr,
		})
	})
}

// ProviderFileRef is one coalesced file reference yielded by
// ForeachProviderFileReferences.
type ProviderFileRef struct {
	File       schema.Code
	Unit       schema.Code
	ModTime    int64
	ModuleName schema.Code
	IsSystem   bool
}

// ForeachProviderFileReferences iterates provider-files[provider].
// Duplicates are ordered by (FileCode, UnitCode); for each distinct
// FileCode this coalesces to the most recent ModTime among entries
// whose UnitCode passes unitFilter, yielding one tuple per file, per
// §4.3. A nil unitFilter accepts every unit.
func (r *Reader) ForeachProviderFileReferences(provider schema.Code, unitFilter func(schema.Code) bool, fn func(ProviderFileRef) bool) {
	dup := r.tx.Dup(schema.BucketProviderFiles)

	var (
		haveCurrent bool
		current     ProviderFileRef
	)
	flush := func() bool {
		if !haveCurrent {
			return true
		}
		ok := fn(current)
		haveCurrent = false
		return ok
	}

	dup.ForEach(provider.Bytes(), func(dupKey, value []byte) bool {
		file, unit := schema.DecodeProviderFileDupKey(dupKey)
		if unitFilter != nil && !unitFilter(unit) {
			return true
		}
		moduleName, modTime, isSystem := schema.DecodeProviderFileValue(value)

		if haveCurrent && current.File != file {
			if !flush() {
				return false
			}
		}
		if !haveCurrent || current.File != file {
			current = ProviderFileRef{File: file, Unit: unit, ModTime: modTime, ModuleName: moduleName, IsSystem: isSystem}
			haveCurrent = true
			return true
		}
		// Same file as the in-flight entry: keep the newer ModTime.
		if modTime > current.ModTime {
			current.Unit = unit
			current.ModTime = modTime
			current.ModuleName = moduleName
			current.IsSystem = isSystem
		}
		return true
	})
	flush()
}

// ForeachUSRByName iterates the USRs stored under the exact
// (possibly truncated, §8 property 3) symbol-name key.
func (r *Reader) ForeachUSRByName(name string, fn func(schema.Code) bool) {
	if len(name) > schema.MaxKeyLen {
		name = name[:schema.MaxKeyLen]
	}
	dup := r.tx.Dup(schema.BucketUSRsBySymbolName)
	dup.ForEach([]byte(name), func(dupKey, _ []byte) bool {
		return fn(schema.CodeFromBytes(dupKey))
	})
}

// FindUSRsWithNameContaining scans usrs-by-symbol-name by key,
// applying opts to each distinct name, and for each hit yields every
// USR batched under that name (§4.3's NEXT_MULTIPLE-batched variant).
func (r *Reader) FindUSRsWithNameContaining(pattern string, opts MatchOptions, fn func(name string, usr schema.Code) bool) {
	dup := r.tx.Dup(schema.BucketUSRsBySymbolName)
	dup.ForEachOuter(func(k []byte) bool {
		name := string(k)
		if !Matches(pattern, name, opts) {
			return true
		}
		cont := true
		dup.ForEach(k, func(dupKey, _ []byte) bool {
			cont = fn(name, schema.CodeFromBytes(dupKey))
			return cont
		})
		return cont
	})
}

// ForeachUSROfGlobalKind iterates usrs-by-global-kind[kind].
func (r *Reader) ForeachUSROfGlobalKind(kind schema.GlobalSymbolKind, fn func(schema.Code) bool) {
	dup := r.tx.Dup(schema.BucketUSRsByGlobalKind)
	dup.ForEach(schema.EncodeKindKey(kind), func(dupKey, _ []byte) bool {
		return fn(schema.CodeFromBytes(dupKey))
	})
}

// ForeachUSROfGlobalUnitTestSymbol yields the union of
// TestClassOrExtension and TestMethod USRs, per §4.3, deduplicating
// across the two kinds.
func (r *Reader) ForeachUSROfGlobalUnitTestSymbol(fn func(schema.Code) bool) {
	seen := make(map[schema.Code]struct{})
	cont := true
	visit := func(c schema.Code) bool {
		if _, ok := seen[c]; ok {
			return true
		}
		seen[c] = struct{}{}
		cont = fn(c)
		return cont
	}
	r.ForeachUSROfGlobalKind(schema.KindTestClassOrExtension, visit)
	if !cont {
		return
	}
	r.ForeachUSROfGlobalKind(schema.KindTestMethod, visit)
}

// ResolveProviderName looks up provider-name-by-code[code].
func (r *Reader) ResolveProviderName(code schema.Code) (string, bool) {
	b := r.tx.Bucket(schema.BucketProviderNameByCode)
	v := b.Get(code.Bytes())
	if v == nil {
		return "", false
	}
	return string(v), true
}

// ProviderContainsTestSymbols reports whether provider has an entry in
// providers-with-test-symbols.
func (r *Reader) ProviderContainsTestSymbols(provider schema.Code) bool {
	b := r.tx.Bucket(schema.BucketProvidersWithTests)
	return b.Get(provider.Bytes()) != nil
}

// ResolveDirPath looks up dir-name-by-code[code].
func (r *Reader) ResolveDirPath(code schema.Code) (string, bool) {
	b := r.tx.Bucket(schema.BucketDirNameByCode)
	v := b.Get(code.Bytes())
	if v == nil {
		return "", false
	}
	return string(v), true
}

// ResolveFilePath resolves a file Code to its full canonical path by
// joining the interned parent directory with the stored basename.
func (r *Reader) ResolveFilePath(code schema.Code) (string, bool) {
	b := r.tx.Bucket(schema.BucketFilenameByCode)
	v := b.Get(code.Bytes())
	if v == nil {
		return "", false
	}
	dirCode, basename := schema.DecodeFilenameValue(v)
	dir, ok := r.ResolveDirPath(dirCode)
	if !ok {
		return basename, true
	}
	return joinPath(dir, basename), true
}

// FindFilenamesContaining scans filename-by-code, skipping object and
// module-cache outputs (.o, .pcm per §4.3), and yields the full
// canonical path of every basename match.
func (r *Reader) FindFilenamesContaining(pattern string, opts MatchOptions, fn func(path string, file schema.Code) bool) {
	b := r.tx.Bucket(schema.BucketFilenameByCode)
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		dirCode, basename := schema.DecodeFilenameValue(v)
		if hasSuffixFold(basename, ".o") || hasSuffixFold(basename, ".pcm") {
			continue
		}
		if !Matches(pattern, basename, opts) {
			continue
		}
		dir, _ := r.ResolveDirPath(dirCode)
		full := joinPath(dir, basename)
		if !fn(full, schema.CodeFromBytes(k)) {
			return
		}
	}
}

// FindFilePathsWithParentPaths yields (fileCode, path) for every file
// interned under any of parents (trailing separators stripped, §4.3).
func (r *Reader) FindFilePathsWithParentPaths(parents []string, fn func(file schema.Code, path string) bool) {
	dup := r.tx.Dup(schema.BucketFilepathsByDir)
	for _, parent := range parents {
		parent = stripTrailingSep(parent)
		dirCode := schema.IDCode(parent)
		cont := true
		dup.ForEach(dirCode.Bytes(), func(dupKey, _ []byte) bool {
			fileCode := schema.CodeFromBytes(dupKey)
			path, _ := r.ResolveFilePath(fileCode)
			cont = fn(fileCode, path)
			return cont
		})
		if !cont {
			return
		}
	}
}

// GetUnitInfo reads and decodes unit-info-by-code[unitCode]. The
// second return is false if no such unit exists (§4.3 "Invalid").
func (r *Reader) GetUnitInfo(unitCode schema.Code) (*schema.UnitInfo, bool, error) {
	b := r.tx.Bucket(schema.BucketUnitInfoByCode)
	v := b.Get(unitCode.Bytes())
	if v == nil {
		return nil, false, nil
	}
	info, err := schema.DecodeUnitInfo(v)
	if err != nil {
		return nil, false, err
	}
	return info, true, nil
}

// GetUnitInfoByName is GetUnitInfo keyed by the unit's name instead of
// its precomputed code.
func (r *Reader) GetUnitInfoByName(unitName string) (*schema.UnitInfo, bool, error) {
	return r.GetUnitInfo(schema.IDCode(unitName))
}

// ForeachAllUnits scans unit-info-by-code directly, decoding every
// stored UnitInfo. Used to seed the Artifact Repository's monitors on
// open; a decode failure on one entry is skipped rather than aborting
// the whole scan.
func (r *Reader) ForeachAllUnits(fn func(code schema.Code, info *schema.UnitInfo) bool) {
	b := r.tx.Bucket(schema.BucketUnitInfoByCode)
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		info, err := schema.DecodeUnitInfo(v)
		if err != nil {
			continue
		}
		if !fn(schema.CodeFromBytes(k), info) {
			return
		}
	}
}

// ForeachUnitContainingFile iterates unit-by-file-dep[file]: the units
// that directly depend on file (as a FileDepend or a ProviderDepend's
// FileCode).
func (r *Reader) ForeachUnitContainingFile(file schema.Code, fn func(schema.Code) bool) {
	dup := r.tx.Dup(schema.BucketUnitByFileDep)
	dup.ForEach(file.Bytes(), func(dupKey, _ []byte) bool {
		return fn(schema.CodeFromBytes(dupKey))
	})
}

// ForeachUnitContainingUnit iterates unit-by-unit-dep[unit]: the units
// that directly depend on unit.
func (r *Reader) ForeachUnitContainingUnit(unit schema.Code, fn func(schema.Code) bool) {
	dup := r.tx.Dup(schema.BucketUnitByUnitDep)
	dup.ForEach(unit.Bytes(), func(dupKey, _ []byte) bool {
		return fn(schema.CodeFromBytes(dupKey))
	})
}

// ForeachRootUnitOfFile walks unit-by-file-dep from file, then
// transitively unit-by-unit-dep, depth-first, yielding every reached
// unit whose UnitInfo.HasMainFile() is true (§4.3 "root" unit),
// breaking cycles with a visited set.
func (r *Reader) ForeachRootUnitOfFile(file schema.Code, fn func(schema.Code) bool) {
	visited := make(map[schema.Code]struct{})
	cont := true
	r.ForeachUnitContainingFile(file, func(u schema.Code) bool {
		cont = r.walkRoots(u, visited, fn)
		return cont
	})
}

// ForeachRootUnitOfUnit is ForeachRootUnitOfFile's analogue seeded
// directly from a unit instead of a file.
func (r *Reader) ForeachRootUnitOfUnit(unit schema.Code, fn func(schema.Code) bool) {
	visited := make(map[schema.Code]struct{})
	r.walkRoots(unit, visited, fn)
}

func (r *Reader) walkRoots(unit schema.Code, visited map[schema.Code]struct{}, fn func(schema.Code) bool) bool {
	if _, ok := visited[unit]; ok {
		return true
	}
	visited[unit] = struct{}{}

	info, ok, err := r.GetUnitInfo(unit)
	if err != nil || !ok {
		// MissingUnit during a query is silently filtered (§7).
		return true
	}
	if info.HasMainFile() {
		if !fn(unit) {
			return false
		}
	}

	cont := true
	r.ForeachUnitContainingUnit(unit, func(dependent schema.Code) bool {
		cont = r.walkRoots(dependent, visited, fn)
		return cont
	})
	return cont
}
