package visibility

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/cuemby/indexdb/internal/rtxn"
	"github.com/cuemby/indexdb/internal/schema"
	"github.com/cuemby/indexdb/pkg/metrics"
)

// Mode selects which of the two mutually-exclusive visibility schemes
// is active (§4.8): main-file mode is the typical editor-client mode;
// explicit-output mode matches units against a registered set of
// build-system output paths.
type Mode int

const (
	ModeMainFile Mode = iota
	ModeExplicitOutput
)

const rootCacheSize = 4096

// Filter is the Visibility Filter. It is safe for concurrent use: the
// visible sets are mutex-guarded (§5 "Shared resources"), and the
// root-reachability cache is its own concurrency-safe LRU.
type Filter struct {
	mu   sync.RWMutex
	mode Mode

	mainFiles   map[schema.Code]struct{}
	outputFiles map[schema.Code]struct{}

	cache *lru.Cache
}

// New returns a Filter with no registered visibility (accept-all, per
// §4.8's "VisibleMainFiles is empty" rule) in main-file mode.
func New() *Filter {
	cache, _ := lru.New(rootCacheSize)
	return &Filter{
		mode:        ModeMainFile,
		mainFiles:   make(map[schema.Code]struct{}),
		outputFiles: make(map[schema.Code]struct{}),
		cache:       cache,
	}
}

// SetMode switches between main-file and explicit-output visibility.
// Switching flushes the root-reachability cache since its meaning
// depends on which set is authoritative.
func (f *Filter) SetMode(mode Mode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = mode
	f.invalidateLocked()
}

// RegisterMainFiles adds paths to VisibleMainFiles (§6 "registerMainFiles").
// productName is accepted for API parity with the conceptual client API
// but carries no filtering semantics in the core (§4.8 names no use for
// it beyond client bookkeeping).
func (f *Filter) RegisterMainFiles(paths []string, productName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		f.mainFiles[schema.IDCode(p)] = struct{}{}
	}
	f.invalidateLocked()
}

// UnregisterMainFiles removes paths from VisibleMainFiles.
func (f *Filter) UnregisterMainFiles(paths []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		delete(f.mainFiles, schema.IDCode(p))
	}
	f.invalidateLocked()
}

// RegisterOutputFiles adds paths to the explicit-output visible set.
func (f *Filter) RegisterOutputFiles(paths []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		f.outputFiles[schema.IDCode(p)] = struct{}{}
	}
	f.invalidateLocked()
}

// UnregisterOutputFiles removes paths from the explicit-output visible set.
func (f *Filter) UnregisterOutputFiles(paths []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		delete(f.outputFiles, schema.IDCode(p))
	}
	f.invalidateLocked()
}

func (f *Filter) invalidateLocked() {
	f.cache.Purge()
	metrics.VisibilityCacheFlushesTotal.Inc()
}

// IsOutputRegistered reports whether outFileCode is in the
// explicit-output visible set — used by the Artifact Repository's
// explicit-output event filter (§4.6), which is a cheaper set-only
// check than the full root-reachability IsUnitVisible predicate.
func (f *Filter) IsOutputRegistered(outFileCode schema.Code) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.outputFiles[outFileCode]
	return ok
}

// IsUnitVisible implements the §4.8 predicate: a unit is visible iff
// the relevant visible set is empty (accept all), or the unit itself
// matches it directly, or some root unit transitively containing it
// does (via r.ForeachRootUnitOfUnit). Root-reachability results are
// memoized per unit and flushed whenever the visible sets change.
func (f *Filter) IsUnitVisible(r *rtxn.Reader, unit schema.Code) bool {
	f.mu.RLock()
	mode := f.mode
	var directSet map[schema.Code]struct{}
	if mode == ModeMainFile {
		directSet = f.mainFiles
	} else {
		directSet = f.outputFiles
	}
	if len(directSet) == 0 {
		f.mu.RUnlock()
		return true
	}

	info, ok, err := r.GetUnitInfo(unit)
	if err == nil && ok {
		var code schema.Code
		var has bool
		if mode == ModeMainFile {
			code, has = info.MainFileCode, info.HasMainFile()
		} else {
			code, has = info.OutFileCode, true
		}
		if has {
			if _, direct := directSet[code]; direct {
				f.mu.RUnlock()
				return true
			}
		}
	}
	f.mu.RUnlock()

	if v, ok := f.cache.Get(unit); ok {
		return v.(bool)
	}

	found := false
	r.ForeachRootUnitOfUnit(unit, func(root schema.Code) bool {
		rootInfo, ok, err := r.GetUnitInfo(root)
		if err != nil || !ok {
			return true
		}
		f.mu.RLock()
		var code schema.Code
		if mode == ModeMainFile {
			code = rootInfo.MainFileCode
		} else {
			code = rootInfo.OutFileCode
		}
		_, direct := directSet[code]
		f.mu.RUnlock()
		if direct {
			found = true
			return false
		}
		return true
	})

	f.cache.Add(unit, found)
	return found
}
