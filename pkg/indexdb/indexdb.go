package indexdb

import (
	"github.com/cuemby/indexdb/internal/kv"
	"github.com/cuemby/indexdb/internal/query"
	"github.com/cuemby/indexdb/internal/reader"
	"github.com/cuemby/indexdb/internal/repo"
	"github.com/cuemby/indexdb/internal/rtxn"
	"github.com/cuemby/indexdb/internal/schema"
	"github.com/cuemby/indexdb/internal/watch"
	"github.com/cuemby/indexdb/pkg/events"
)

// Options configures Open, matching §6's conceptual client API
// "(storePath, dbPath, readonly, options, initialMapSize)".
type Options struct {
	// ReadOnly opens the database in place, starting no watcher.
	ReadOnly bool
	// InitialMapSize seeds the environment's starting map-size policy
	// cap; zero uses internal/kv's own default (64 MiB).
	InitialMapSize int64
	// ExplicitOutputMode switches the Artifact Repository into
	// explicit-output visibility from open (§4.6, §4.8).
	ExplicitOutputMode bool
	// Reader decodes compiler-emitted unit artifacts. Required unless
	// ReadOnly; the Query Engine also decodes provider records through
	// it, so occurrence, canonical, override and call queries need it
	// in every mode.
	Reader reader.Reader
	// Source supplies unit events; a default fsnotify watcher over
	// storePath is used when nil and the DB is not ReadOnly.
	Source watch.Source
	// Delegate receives processing/out-of-date notifications; a DB
	// starts and owns its own broker when nil.
	Delegate *events.Broker
}

// DB is the public handle over one open index: the composition of the
// Artifact Repository and the Query Engine over the same environment.
type DB struct {
	repo *repo.Repository
	eng  *query.Engine
}

// Open opens or creates the index rooted at dbPath, ingesting unit
// artifacts found under storePath. A second Open for the same dbPath
// within this process returns a new DB over the same, already-open
// Repository (§4.6 process-wide de-duplication, inherited from
// internal/repo.Open).
func Open(storePath, dbPath string, opts Options) (*DB, error) {
	r, err := repo.Open(repo.Config{
		StorePath:          storePath,
		DBPath:             dbPath,
		ReadOnly:           opts.ReadOnly,
		InitialMapSize:     opts.InitialMapSize,
		ExplicitOutputMode: opts.ExplicitOutputMode,
		Reader:             opts.Reader,
		Source:             opts.Source,
		Delegate:           opts.Delegate,
	})
	if err != nil {
		return nil, err
	}
	return &DB{
		repo: r,
		eng:  query.New(r.Env(), opts.Reader, r.Visibility()),
	}, nil
}

// Close closes the index, including the pid-scoped workdir close
// dance for a writable DB.
func (db *DB) Close() error { return db.repo.Close() }

// Delegate returns the event broker clients subscribe to for
// processing/out-of-date notifications (§6 "Delegate events").
func (db *DB) Delegate() *events.Broker { return db.repo.Delegate() }

// AddUnitOutFilePaths registers output paths in the explicit-output
// visible set (§6 "addUnitOutFilePaths"). waitForProcessing drains the
// ingest queue synchronously before returning.
func (db *DB) AddUnitOutFilePaths(paths []string, waitForProcessing bool) {
	db.repo.AddUnitOutFilePaths(paths, waitForProcessing)
}

// RemoveUnitOutFilePaths unregisters output paths (§6
// "removeUnitOutFilePaths").
func (db *DB) RemoveUnitOutFilePaths(paths []string) {
	db.repo.RemoveUnitOutFilePaths(paths)
}

// SetExplicitOutputMode switches between main-file and explicit-output
// visibility at runtime.
func (db *DB) SetExplicitOutputMode(enabled bool) {
	db.repo.SetExplicitOutputMode(enabled)
}

// RegisterMainFiles registers a product's main files for main-file
// visibility (§6 "registerMainFiles", §4.8).
func (db *DB) RegisterMainFiles(paths []string, productName string) {
	db.repo.Visibility().RegisterMainFiles(paths, productName)
}

// UnregisterMainFiles unregisters previously registered main files
// (§6 "unregisterMainFiles").
func (db *DB) UnregisterMainFiles(paths []string) {
	db.repo.Visibility().UnregisterMainFiles(paths)
}

// NotifyChangedPaths drives the FS-events out-of-date detection path
// for a batch of changed parent directories (§4.6), independent of the
// unit-artifact watcher.
func (db *DB) NotifyChangedPaths(parents []string) {
	db.repo.NotifyChangedPaths(parents)
}

// PollForUnitChangesAndWait blocks until the ingest queue has drained,
// giving callers synchronous "catch up, then query" semantics (§6
// "pollForUnitChangesAndWait").
func (db *DB) PollForUnitChangesAndWait() {
	db.repo.Flush()
}

// OccurrenceByUSR returns every occurrence of usr matching roles,
// visibility-filtered.
func (db *DB) OccurrenceByUSR(usr string, roles schema.Roles) ([]query.Occurrence, error) {
	return db.eng.OccurrenceByUSR(usr, roles)
}

// RelatedOccurrenceByUSR returns occurrences related to usr by
// relatedRoles (e.g. overrides, references).
func (db *DB) RelatedOccurrenceByUSR(usr string, relatedRoles schema.Roles) ([]query.Occurrence, error) {
	return db.eng.RelatedOccurrenceByUSR(usr, relatedRoles)
}

// CanonicalByUSR resolves usr to its canonical definition/declaration
// occurrence(s), per §4.7's three-tier fallback.
func (db *DB) CanonicalByUSR(usr string) ([]query.Occurrence, error) {
	return db.eng.CanonicalByUSR(usr)
}

// CanonicalByName looks up canonical occurrences by exact symbol name.
func (db *DB) CanonicalByName(name string) ([]query.Occurrence, error) {
	return db.eng.CanonicalByName(name)
}

// CanonicalByPattern looks up canonical occurrences by substring/prefix
// pattern match over symbol names.
func (db *DB) CanonicalByPattern(pattern string, opts rtxn.MatchOptions) ([]query.Occurrence, error) {
	return db.eng.CanonicalByPattern(pattern, opts)
}

// CanonicalByKind lists every canonical occurrence of a global symbol
// kind.
func (db *DB) CanonicalByKind(kind schema.GlobalSymbolKind) ([]query.Occurrence, error) {
	return db.eng.CanonicalByKind(kind)
}

// UnitsContainingFile lists the units (by name) that contain path.
func (db *DB) UnitsContainingFile(path string) ([]string, error) {
	return db.eng.UnitsContainingFile(path)
}

// FilesOfUnit lists the file paths a unit contains.
func (db *DB) FilesOfUnit(unitName string) ([]string, error) {
	return db.eng.FilesOfUnit(unitName)
}

// FileIncludes lists the files path includes.
func (db *DB) FileIncludes(path string) ([]string, error) {
	return db.eng.FileIncludes(path)
}

// OverrideAncestry returns usr's own occurrences from providers that
// record it with an override-of (instance method) or base-of relation;
// other USRs in the ancestry are not followed.
func (db *DB) OverrideAncestry(usr string, isInstanceMethod bool) ([]query.Occurrence, error) {
	return db.eng.OverrideAncestry(usr, isInstanceMethod)
}

// CallOccurrences lists call sites of usr, optionally expanding through
// dynamic-dispatch overrides.
func (db *DB) CallOccurrences(usr string, dynamic bool) ([]query.CallSite, error) {
	return db.eng.CallOccurrences(usr, dynamic)
}

// Stats reports per-sub-database key counts (§6 "printStats").
func (db *DB) Stats() (map[string]int, error) {
	return db.repo.Env().Stats()
}

// MapSize returns the environment's current policy map-size cap.
func (db *DB) MapSize() int64 { return db.repo.Env().MapSize() }

// Growths returns how many times the map size has doubled since open.
func (db *DB) Growths() int { return db.repo.Env().Growths() }

// ProviderFileAssociation is one (file, unit, modtime) tuple a
// provider holds, as reported by DumpProviderFileAssociations.
type ProviderFileAssociation struct {
	FilePath string
	UnitName string
	ModTime  int64
	IsSystem bool
}

// DumpProviderFileAssociations lists every file association a provider
// holds (§6 "dumpProviderFileAssociations").
func (db *DB) DumpProviderFileAssociations(providerName string) ([]ProviderFileAssociation, error) {
	var out []ProviderFileAssociation
	err := db.repo.Env().View(func(rtx *kv.ReadTxn) error {
		rd := rtxn.New(rtx)
		providerCode := schema.IDCode(providerName)
		rd.ForeachProviderFileReferences(providerCode, nil, func(ref rtxn.ProviderFileRef) bool {
			path, _ := rd.ResolveFilePath(ref.File)
			unitName := ""
			if info, ok, err := rd.GetUnitInfo(ref.Unit); err == nil && ok {
				unitName = info.Name
			}
			out = append(out, ProviderFileAssociation{
				FilePath: path,
				UnitName: unitName,
				ModTime:  ref.ModTime,
				IsSystem: ref.IsSystem,
			})
			return true
		})
		return nil
	})
	return out, err
}
