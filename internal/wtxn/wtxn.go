package wtxn

import (
	"github.com/cuemby/indexdb/internal/kv"
	"github.com/cuemby/indexdb/internal/schema"
)

// Writer wraps a *kv.WriteTxn with the mutators of §4.4. Construct one
// with New inside an Environment.Update (or WithMapFullRetry)
// callback; it is only valid for that callback's lifetime.
type Writer struct {
	tx *kv.WriteTxn
}

// New wraps tx in a Writer.
func New(tx *kv.WriteTxn) *Writer { return &Writer{tx: tx} }

// internString is the shared shape behind every write-once intern
// table (provider-name-by-code, dir-name-by-code, target-name-by-code,
// module-name-by-code): compute the code, and if the bucket doesn't
// already have an entry for it, write the string. Re-interning the
// same string is a no-op past the first write — these tables are
// never mutated once populated (§3 "Lifecycles").
func (w *Writer) internString(bucket []byte, s string) (code schema.Code, wasInserted bool) {
	code = schema.IDCode(s)
	b := w.tx.Bucket(bucket)
	if b.Get(code.Bytes()) != nil {
		return code, false
	}
	// Errors from bbolt Put here only happen on a read-only bucket or
	// a key-too-large condition; both are environment misconfiguration
	// bugs, not expected runtime conditions, so we let MapFull-sized
	// writes surface via Environment.Update's own size check instead
	// of threading an error return through every interner.
	_ = b.Put(code.Bytes(), []byte(s))
	return code, true
}

// AddProviderName interns name into provider-name-by-code (§4.4).
func (w *Writer) AddProviderName(name string) (code schema.Code, wasInserted bool) {
	return w.internString(schema.BucketProviderNameByCode, name)
}

// AddDirectory interns dir into dir-name-by-code.
func (w *Writer) AddDirectory(dir string) (code schema.Code, wasInserted bool) {
	return w.internString(schema.BucketDirNameByCode, dir)
}

// AddTargetName interns name into target-name-by-code.
func (w *Writer) AddTargetName(name string) (code schema.Code, wasInserted bool) {
	return w.internString(schema.BucketTargetNameByCode, name)
}

// AddModuleName interns name into module-name-by-code, skipping empty
// names and returning the sentinel ZeroCode for them (§4.4).
func (w *Writer) AddModuleName(name string) (code schema.Code, wasInserted bool) {
	if name == "" {
		return schema.ZeroCode, false
	}
	return w.internString(schema.BucketModuleNameByCode, name)
}

// AddUnitFileIdentifier computes a unit's Code from its name. Unlike
// the other interners, units have no separate name table: the name is
// embedded directly in the UnitInfo payload written by AddUnitInfo, so
// this is a pure function over the name, not a store mutation.
func (w *Writer) AddUnitFileIdentifier(name string) schema.Code {
	return schema.IDCode(name)
}

// SetProviderContainsTestSymbols marks provider in
// providers-with-test-symbols (§4.2 table 3).
func (w *Writer) SetProviderContainsTestSymbols(provider schema.Code) {
	b := w.tx.Bucket(schema.BucketProvidersWithTests)
	_ = b.Put(provider.Bytes(), []byte{})
}

// ClearProviderContainsTestSymbols removes provider's entry, used by
// RemoveUnitData's orphan purge (DESIGN.md Open Question 3).
func (w *Writer) ClearProviderContainsTestSymbols(provider schema.Code) {
	b := w.tx.Bucket(schema.BucketProvidersWithTests)
	_ = b.Delete(provider.Bytes())
}

// ProviderContainsTestSymbols reads the same flag back, used by the
// unit importer when recomputing HasTestSymbols (§4.5 step 4).
func (w *Writer) ProviderContainsTestSymbols(provider schema.Code) bool {
	b := w.tx.Bucket(schema.BucketProvidersWithTests)
	return b.Get(provider.Bytes()) != nil
}

// AddSymbolInfo upserts providers-by-usr[usr] with provider's
// contribution, merging roles if the provider already has an entry
// (§3 invariant 2), and populates the secondary name/kind/test indices
// per §4.4. It returns the USR's Code.
func (w *Writer) AddSymbolInfo(provider schema.Code, usr, name string, info schema.SymbolInfo, roles, relatedRoles schema.Roles) schema.Code {
	usrCode := schema.IDCode(usr)

	dup := w.tx.Dup(schema.BucketProvidersByUSR)
	existing := dup.Get(usrCode.Bytes(), provider.Bytes())
	if existing != nil {
		existingRoles, existingRelated := schema.DecodeProviderUSRValue(existing)
		merged := existingRoles | roles
		mergedRelated := existingRelated | relatedRoles
		if merged != existingRoles || mergedRelated != existingRelated {
			_ = dup.Put(usrCode.Bytes(), provider.Bytes(), schema.EncodeProviderUSRValue(merged, mergedRelated))
		}
	} else {
		_ = dup.Put(usrCode.Bytes(), provider.Bytes(), schema.EncodeProviderUSRValue(roles, relatedRoles))
	}

	if (roles.Has(schema.RoleDeclaration) || roles.Has(schema.RoleDefinition)) && info.EligibleForGlobalNameSearch && name != "" {
		key := name
		if len(key) > schema.MaxKeyLen {
			key = key[:schema.MaxKeyLen]
		}
		nameDup := w.tx.Dup(schema.BucketUSRsBySymbolName)
		_ = nameDup.Put([]byte(key), usrCode.Bytes(), []byte{})
	}

	if info.Kind != schema.KindInvalid {
		kindDup := w.tx.Dup(schema.BucketUSRsByGlobalKind)
		_ = kindDup.Put(schema.EncodeKindKey(info.Kind), usrCode.Bytes(), []byte{})

		if info.IsUnitTestProperty && roles.Has(schema.RoleDefinition) {
			testKind := schema.KindTestMethod
			if info.IsClassLike {
				testKind = schema.KindTestClassOrExtension
			}
			_ = kindDup.Put(schema.EncodeKindKey(testKind), usrCode.Bytes(), []byte{})
		}
	}

	return usrCode
}

// AddFilePath interns the basename under filename-by-code, the parent
// directory under dir-name-by-code, and links them in
// filepaths-by-dir (§4.4). Returns the file's Code.
func (w *Writer) AddFilePath(path string) schema.Code {
	dir, base := splitPath(path)
	dirCode, _ := w.AddDirectory(dir)

	fileCode := schema.IDCode(path)
	filesBucket := w.tx.Bucket(schema.BucketFilenameByCode)
	if filesBucket.Get(fileCode.Bytes()) == nil {
		_ = filesBucket.Put(fileCode.Bytes(), schema.EncodeFilenameValue(dirCode, base))
	}

	dirsDup := w.tx.Dup(schema.BucketFilepathsByDir)
	_ = dirsDup.Put(dirCode.Bytes(), fileCode.Bytes(), []byte{})

	return fileCode
}

// AddFileAssociationForProvider upserts provider-files with provider's
// association to (file, unit); if the dup already exists its NanoTime
// is only advanced, never regressed (§4.4).
func (w *Writer) AddFileAssociationForProvider(provider, file, unit schema.Code, modTime int64, module schema.Code, isSystem bool) {
	dup := w.tx.Dup(schema.BucketProviderFiles)
	dupKey := schema.ProviderFileDupKey(file, unit)

	existing := dup.Get(provider.Bytes(), dupKey)
	if existing != nil {
		_, existingModTime, _ := schema.DecodeProviderFileValue(existing)
		if modTime <= existingModTime {
			return
		}
	}
	_ = dup.Put(provider.Bytes(), dupKey, schema.EncodeProviderFileValue(module, modTime, isSystem))
}

// RemoveFileAssociationFromProvider deletes the (file, unit)
// duplicate from provider-files[provider], returning whether the
// provider has zero remaining associations.
func (w *Writer) RemoveFileAssociationFromProvider(provider, file, unit schema.Code) (noRemainingRefs bool) {
	dup := w.tx.Dup(schema.BucketProviderFiles)
	remaining, _ := dup.Delete(provider.Bytes(), schema.ProviderFileDupKey(file, unit))
	return remaining == 0
}

// AddUnitInfo serializes info into unit-info-by-code, keyed by
// IDCode(info.Name) (§4.4, §9 alignment notes).
func (w *Writer) AddUnitInfo(info *schema.UnitInfo) {
	b := w.tx.Bucket(schema.BucketUnitInfoByCode)
	code := schema.IDCode(info.Name)
	_ = b.Put(code.Bytes(), schema.EncodeUnitInfo(info))
}

// AddUnitFileDependency inserts unit into unit-by-file-dep[fileCode].
func (w *Writer) AddUnitFileDependency(unit, fileCode schema.Code) {
	dup := w.tx.Dup(schema.BucketUnitByFileDep)
	_ = dup.Put(fileCode.Bytes(), unit.Bytes(), []byte{})
}

// RemoveUnitFileDependency is the inverse of AddUnitFileDependency.
func (w *Writer) RemoveUnitFileDependency(unit, fileCode schema.Code) {
	dup := w.tx.Dup(schema.BucketUnitByFileDep)
	_, _ = dup.Delete(fileCode.Bytes(), unit.Bytes())
}

// AddUnitUnitDependency inserts unit into unit-by-unit-dep[unitDep].
func (w *Writer) AddUnitUnitDependency(unit, unitDep schema.Code) {
	dup := w.tx.Dup(schema.BucketUnitByUnitDep)
	_ = dup.Put(unitDep.Bytes(), unit.Bytes(), []byte{})
}

// RemoveUnitUnitDependency is the inverse of AddUnitUnitDependency.
func (w *Writer) RemoveUnitUnitDependency(unit, unitDep schema.Code) {
	dup := w.tx.Dup(schema.BucketUnitByUnitDep)
	_, _ = dup.Delete(unitDep.Bytes(), unit.Bytes())
}

// GetUnitInfo reads and decodes unit-info-by-code[unitCode], used by
// RemoveUnitData to find the previous dependency sets to unwind.
func (w *Writer) GetUnitInfo(unitCode schema.Code) (*schema.UnitInfo, bool, error) {
	b := w.tx.Bucket(schema.BucketUnitInfoByCode)
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

// RemoveUnitData deletes unit's UnitInfo and unwinds every inverted
// index entry it implied: unit-by-file-dep for each FileDepend and
// each ProviderDepend's FileCode, unit-by-unit-dep for each UnitDepend,
// and the provider-files association for each ProviderDepend. Per
// DESIGN.md's Open Question 3 decision, a provider left with zero
// remaining file associations also has its
// providers-with-test-symbols entry purged (§9).
func (w *Writer) RemoveUnitData(unit schema.Code) error {
	info, ok, err := w.GetUnitInfo(unit)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	b := w.tx.Bucket(schema.BucketUnitInfoByCode)
	_ = b.Delete(unit.Bytes())

	for _, file := range info.FileDepends {
		w.RemoveUnitFileDependency(unit, file)
	}
	for _, unitDep := range info.UnitDepends {
		w.RemoveUnitUnitDependency(unit, unitDep)
	}
	for _, pd := range info.ProviderDepends {
		w.RemoveUnitFileDependency(unit, pd.FileCode)
		if w.RemoveFileAssociationFromProvider(pd.ProviderCode, pd.FileCode, unit) {
			w.ClearProviderContainsTestSymbols(pd.ProviderCode)
		}
	}
	return nil
}

func splitPath(path string) (dir, base string) {
	i := lastSlash(path)
	if i < 0 {
		return "", path
	}
	if i == 0 {
		return "/", path[1:]
	}
	return path[:i], path[i+1:]
}

func lastSlash(path string) int {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return i
		}
	}
	return -1
}
