package schema

// Bucket names for the thirteen sub-databases of §4.2. Each name is
// the top-level bbolt bucket the KV Store Adapter opens at environment
// setup; the multi-value DBIs (providers-by-usr, provider-files,
// usrs-by-symbol-name, usrs-by-global-kind, filepaths-by-dir,
// unit-by-file-dep, unit-by-unit-dep) additionally nest a bucket per
// outer key to emulate LMDB's sorted-duplicate pages (see internal/kv
// for the adapter that does this).
var (
	BucketProvidersByUSR        = []byte("providers-by-usr")
	BucketProviderNameByCode    = []byte("provider-name-by-code")
	BucketProvidersWithTests    = []byte("providers-with-test-symbols")
	BucketUSRsBySymbolName      = []byte("usrs-by-symbol-name")
	BucketUSRsByGlobalKind      = []byte("usrs-by-global-kind")
	BucketDirNameByCode         = []byte("dir-name-by-code")
	BucketFilenameByCode        = []byte("filename-by-code")
	BucketFilepathsByDir        = []byte("filepaths-by-dir")
	BucketProviderFiles         = []byte("provider-files")
	BucketUnitInfoByCode        = []byte("unit-info-by-code")
	BucketUnitByFileDep         = []byte("unit-by-file-dep")
	BucketUnitByUnitDep         = []byte("unit-by-unit-dep")
	BucketTargetNameByCode      = []byte("target-name-by-code")
	BucketModuleNameByCode      = []byte("module-name-by-code")
)

// AllBuckets lists every sub-database the environment must create on
// open, in a stable order (used by Stats and by environment setup).
var AllBuckets = [][]byte{
	BucketProvidersByUSR,
	BucketProviderNameByCode,
	BucketProvidersWithTests,
	BucketUSRsBySymbolName,
	BucketUSRsByGlobalKind,
	BucketDirNameByCode,
	BucketFilenameByCode,
	BucketFilepathsByDir,
	BucketProviderFiles,
	BucketUnitInfoByCode,
	BucketUnitByFileDep,
	BucketUnitByUnitDep,
	BucketTargetNameByCode,
	BucketModuleNameByCode,
}

// FormatVersion is the schema's on-disk format version (§3 invariant 7,
// §7 FormatVersionMismatch). Stores live under a v<N>/ directory named
// after this constant, so a store written under another version is
// never opened; a version change starts a new database under the
// matching v<N>/ path.
const FormatVersion = 1

// ProviderUSREntry is one duplicate in providers-by-usr: a provider
// contributing some roles to a USR. Nested-bucket key is ProviderCode;
// the value is the fixed 16-byte (Roles, RelatedRoles) payload, so
// re-inserting the same (USR, ProviderCode) pair updates the payload
// in place rather than creating a second entry (§3 invariant 2).
type ProviderUSREntry struct {
	ProviderCode Code
	Roles        Roles
	RelatedRoles Roles
}

// ProviderFileEntry is one duplicate in provider-files: a provider's
// association with a (file, unit) pair. Nested-bucket key is the
// 16-byte (FileCode, UnitCode) composite; the value carries the
// "auxiliary" fields the dup-sort comparator ignores for ordering
// (ModuleNameCode, NanoTime, IsSystem) per §4.2 table entry 9.
type ProviderFileEntry struct {
	FileCode       Code
	UnitCode       Code
	ModuleNameCode Code
	NanoTime       int64
	IsSystem       bool
}

// MaxKeyLen truncates symbol names before they are stored as
// usrs-by-symbol-name keys (§4.2 table entry 4, §8 property 3). bbolt
// itself allows keys up to ~32KB; this is a conservative policy cap
// modeling the embedded store's practical max-key-size the spec
// assumes callers must respect.
const MaxKeyLen = 511
