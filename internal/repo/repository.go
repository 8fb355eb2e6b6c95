package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/indexdb/internal/importer"
	"github.com/cuemby/indexdb/internal/kv"
	"github.com/cuemby/indexdb/internal/reader"
	"github.com/cuemby/indexdb/internal/rtxn"
	"github.com/cuemby/indexdb/internal/schema"
	"github.com/cuemby/indexdb/internal/visibility"
	"github.com/cuemby/indexdb/internal/watch"
	"github.com/cuemby/indexdb/pkg/events"
	"github.com/cuemby/indexdb/pkg/log"
	"github.com/cuemby/indexdb/pkg/metrics"
)

// Config configures Open.
type Config struct {
	// StorePath is the directory of compiler-emitted unit artifacts the
	// watcher observes; one file per unit, named after the unit.
	StorePath string
	// DBPath is the root directory of the persistent index (§6
	// "Database root is a directory chosen by the caller").
	DBPath string
	// ReadOnly opens saved/ in place with no rename dance and starts no
	// watcher (§4.6 "Readonly mode").
	ReadOnly bool
	// InitialMapSize seeds kv.Options.InitialMapSize; zero uses the kv
	// package's own default.
	InitialMapSize int64
	// ExplicitOutputMode switches on §4.6's explicit-output filtering
	// from open; callers may also flip it later via SetExplicitOutputMode.
	ExplicitOutputMode bool
	// Reader decodes compiler artifacts. Required for a writable
	// Repository; ignored for ReadOnly ones.
	Reader reader.Reader
	// Source supplies unit events; defaults to a watch.FSWatcher on
	// StorePath when nil and the Repository is not ReadOnly.
	Source watch.Source
	// Delegate receives processing/out-of-date notifications. A
	// Repository starts and owns its own broker when nil.
	Delegate *events.Broker
}

// Repository is the Artifact Repository of §4.6.
type Repository struct {
	cfg Config

	env *kv.Environment
	imp *importer.Importer
	vis *visibility.Filter

	delegate *events.Broker
	ownsDel  bool

	workdir string
	source  watch.Source

	queue *eventQueue

	monMu    sync.Mutex
	monitors map[schema.Code]*UnitMonitor

	outputMu       sync.Mutex
	explicitOutput bool

	stopCh chan struct{}
	doneCh chan struct{}

	logger zerolog.Logger
}

// Open opens or creates the database at cfg.DBPath: performs the
// pid-scoped workdir dance (or the readonly in-place open), starts
// the watcher and serial ingest worker, and returns a ready
// Repository. A second Open for the same cfg.DBPath within this
// process returns the already-open Repository (§4.6 "process-wide
// de-duplication").
func Open(cfg Config) (*Repository, error) {
	openEnvMu.Lock()
	defer openEnvMu.Unlock()
	if existing, ok := openEnvs[cfg.DBPath]; ok {
		return existing, nil
	}
	r := &Repository{
		cfg:            cfg,
		vis:            visibility.New(),
		queue:          newEventQueue(),
		monitors:       make(map[schema.Code]*UnitMonitor),
		explicitOutput: cfg.ExplicitOutputMode,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
	if err := r.init(); err != nil {
		return nil, err
	}
	openEnvs[cfg.DBPath] = r
	return r, nil
}

func (r *Repository) init() error {
	r.logger = log.DBContext(log.Logger, r.cfg.DBPath)

	if r.cfg.Delegate != nil {
		r.delegate = r.cfg.Delegate
	} else {
		r.delegate = events.NewBroker()
		r.delegate.Start()
		r.ownsDel = true
	}
	if r.cfg.ExplicitOutputMode {
		r.vis.SetMode(visibility.ModeExplicitOutput)
	}

	if err := r.openEnvironment(); err != nil {
		return err
	}
	r.imp = importer.New(r.env, r.cfg.Reader)

	if r.cfg.ReadOnly {
		close(r.doneCh)
		return nil
	}

	source := r.cfg.Source
	if source == nil {
		if err := os.MkdirAll(r.cfg.StorePath, 0755); err != nil {
			r.env.Close()
			return err
		}
		fw, err := watch.NewFSWatcher(r.cfg.StorePath)
		if err != nil {
			r.env.Close()
			return err
		}
		source = fw
	}
	r.source = source

	r.seedMonitors()
	go r.run()
	return nil
}

// openEnvironment performs the pid-scoped workdir protocol and opens
// the kv.Environment on the resulting directory, falling back to the
// corrupted-rename path of §4.6 step 5 if the claimed directory fails
// to open as a store.
func (r *Repository) openEnvironment() error {
	if r.cfg.ReadOnly {
		dir := filepath.Join(versionDir(r.cfg.DBPath), "saved")
		env, err := kv.Open(filepath.Join(dir, "index.db"), kv.Options{ReadOnly: true})
		if err != nil {
			return err
		}
		r.env, r.workdir = env, dir
		return nil
	}

	dir, isNew, err := openWorkdir(r.cfg.DBPath)
	if err != nil {
		return err
	}

	env, err := kv.Open(filepath.Join(dir, "index.db"), kv.Options{InitialMapSize: r.cfg.InitialMapSize})
	if err != nil && !isNew {
		if cerr := markCorrupted(r.cfg.DBPath, dir); cerr != nil {
			return cerr
		}
		dir, _, err = openWorkdir(r.cfg.DBPath)
		if err != nil {
			return err
		}
		env, err = kv.Open(filepath.Join(dir, "index.db"), kv.Options{InitialMapSize: r.cfg.InitialMapSize})
	}
	if err != nil {
		return fmt.Errorf("repo: open environment: %w", err)
	}

	r.env, r.workdir = env, dir
	return nil
}

type seedEntry struct {
	code schema.Code
	info *schema.UnitInfo
}

func (r *Repository) seedMonitors() {
	var entries []seedEntry
	r.env.View(func(rtx *kv.ReadTxn) error {
		rd := rtxn.New(rtx)
		rd.ForeachAllUnits(func(code schema.Code, info *schema.UnitInfo) bool {
			if !info.IsSystem() {
				entries = append(entries, seedEntry{code, info})
			}
			return true
		})
		return nil
	})

	r.env.View(func(rtx *kv.ReadTxn) error {
		rd := rtxn.New(rtx)
		r.monMu.Lock()
		defer r.monMu.Unlock()
		for _, e := range entries {
			r.monitors[e.code] = newUnitMonitor(e.code, e.info.Name, e.info, rd)
		}
		return nil
	})
}

// run is the serial ingest worker of §4.6/§5: it drains watcher
// events into the FIFO queue and drives bounded-batch processing,
// interleaving the two so a burst of watcher events never delays
// processing of whatever already queued.
func (r *Repository) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			for r.queue.len() > 0 {
				r.processBatch()
			}
			return
		case ev, ok := <-r.source.Events():
			if !ok {
				for r.queue.len() > 0 {
					r.processBatch()
				}
				return
			}
			r.enqueue(ev, false)
		case <-ticker.C:
			if r.queue.len() > 0 {
				r.processBatch()
			}
		}
	}
}

func (r *Repository) enqueue(ev watch.UnitEvent, isDependency bool) {
	metrics.EventQueueDepth.Set(float64(r.queue.len() + 1))
	if r.queue.push(ev, isDependency) {
		r.delegate.Publish(&events.Event{Type: events.EventProcessingAddedPending, Payload: 1})
	}
}

// processBatch pops and processes one bounded batch (§4.6: <=10
// events), inside the MapFull-guarded write path that
// importer.ImportUnit already wraps.
func (r *Repository) processBatch() {
	batch := r.queue.popBatch()
	if len(batch) == 0 {
		return
	}

	processed := 0
	var newDeps []watch.UnitEvent

	for _, pe := range batch {
		ev := pe.event
		metrics.EventsProcessedTotal.WithLabelValues(ev.Kind.String()).Inc()

		if ev.Kind == watch.Removed || ev.Kind == watch.DirectoryDeleted {
			if err := r.imp.DeleteUnit(ev.UnitName); err != nil {
				log.UnitContext(r.logger, ev.UnitName).Warn().Err(err).Msg("failed to delete vanished unit")
			}
			r.monMu.Lock()
			delete(r.monitors, schema.IDCode(ev.UnitName))
			r.monMu.Unlock()
			processed++
			continue
		}

		// Decoding here (in addition to the decode ImportUnit performs
		// internally) reads the unit a second time, and lets the
		// repository see a unit's unit-dependency names and output path
		// before deciding whether to commit it.
		decoded, decErr := r.cfg.Reader.ReadUnit(ev.UnitName)
		if decErr == nil && r.explicitOutputEnabled() && !pe.isDependency {
			if !r.vis.IsOutputRegistered(schema.IDCode(decoded.OutFilePath)) {
				processed++
				continue
			}
		}

		result, err := r.imp.ImportUnit(ev.UnitName)
		if err != nil {
			processed++
			continue
		}
		processed++

		if result.State == importer.StateUpToDate {
			continue
		}

		r.delegate.Publish(&events.Event{Type: events.EventProcessedStoreUnit, Payload: result.Info})

		if decErr == nil {
			for _, dep := range decoded.Dependencies {
				if dep.Kind == reader.DependencyUnit {
					newDeps = append(newDeps, watch.UnitEvent{Kind: watch.Added, UnitName: dep.UnitName})
				}
			}
		}

		if result.Info.IsSystem() {
			continue
		}
		r.trackMonitor(schema.IDCode(ev.UnitName), ev.UnitName, result.Info)
	}

	r.delegate.Publish(&events.Event{Type: events.EventProcessingCompleted, Payload: processed})
	metrics.EventQueueDepth.Set(float64(r.queue.len()))

	for _, dep := range newDeps {
		if dep.UnitName != "" {
			r.enqueue(dep, true)
		}
	}
}

func (r *Repository) trackMonitor(unitCode schema.Code, unitName string, info *schema.UnitInfo) {
	var mon *UnitMonitor
	r.env.View(func(rtx *kv.ReadTxn) error {
		rd := rtxn.New(rtx)
		r.monMu.Lock()
		defer r.monMu.Unlock()
		if existing, ok := r.monitors[unitCode]; ok {
			existing.reimport(info, rd)
			mon = existing
		} else {
			mon = newUnitMonitor(unitCode, unitName, info, rd)
			r.monitors[unitCode] = mon
		}
		return nil
	})

	r.checkMonitorAtImport(mon, info)
}

// checkMonitorAtImport implements §4.6's "on import" rule: check the
// most-recent modtime among the unit's file-deps, and inherit any
// trigger from a user unit-dep that post-dates this unit's modtime.
func (r *Repository) checkMonitorAtImport(mon *UnitMonitor, info *schema.UnitInfo) {
	for _, path := range mon.FilePaths() {
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		if t, changed := mon.checkForOutOfDate(path, fi.ModTime().UnixNano()); changed {
			r.notifyOutOfDate(mon, t, false)
			r.propagateOutOfDate(mon.unitCode, mon.unitName, t)
		}
	}

	for _, depCode := range info.UnitDepends {
		r.monMu.Lock()
		depMon, ok := r.monitors[depCode]
		r.monMu.Unlock()
		if !ok {
			continue
		}
		for _, t := range depMon.snapshotTriggers() {
			if wrapped, changed := mon.propagate(depMon.unitName, t); changed {
				r.notifyOutOfDate(mon, wrapped, false)
				r.propagateOutOfDate(mon.unitCode, mon.unitName, wrapped)
			}
		}
	}
}

// NotifyChangedPaths drives §4.6's FS-events path: given a batch of
// changed parent directories, find every interned file beneath them,
// collect the units that depend on each (one read transaction), then
// — outside that transaction, to avoid nested reads — stat each file
// and ask its affected units' monitors to check for staleness.
func (r *Repository) NotifyChangedPaths(parents []string) {
	type hit struct {
		path string
	}
	affected := make(map[schema.Code][]hit)

	r.env.View(func(rtx *kv.ReadTxn) error {
		rd := rtxn.New(rtx)
		rd.FindFilePathsWithParentPaths(parents, func(file schema.Code, path string) bool {
			rd.ForeachUnitContainingFile(file, func(unit schema.Code) bool {
				affected[unit] = append(affected[unit], hit{path: path})
				return true
			})
			return true
		})
		return nil
	})

	for unit, hits := range affected {
		r.monMu.Lock()
		mon, ok := r.monitors[unit]
		r.monMu.Unlock()
		if !ok {
			continue
		}
		for _, h := range hits {
			fi, err := os.Stat(h.path)
			if err != nil {
				continue
			}
			if t, changed := mon.checkForOutOfDate(h.path, fi.ModTime().UnixNano()); changed {
				r.notifyOutOfDate(mon, t, false)
				r.propagateOutOfDate(unit, mon.unitName, t)
			}
		}
	}
}

// propagateOutOfDate implements §4.6's cascade rule iteratively (a
// work queue, not recursion), bounded by the monitor set via the
// visited map.
func (r *Repository) propagateOutOfDate(sourceUnit schema.Code, sourceUnitName string, t unitTrigger) {
	type work struct {
		unit schema.Code
		name string
		t    unitTrigger
	}

	queue := []work{{sourceUnit, sourceUnitName, t}}
	visited := map[schema.Code]struct{}{sourceUnit: {}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		var dependents []schema.Code
		r.env.View(func(rtx *kv.ReadTxn) error {
			rd := rtxn.New(rtx)
			rd.ForeachUnitContainingUnit(cur.unit, func(dep schema.Code) bool {
				dependents = append(dependents, dep)
				return true
			})
			return nil
		})

		for _, dep := range dependents {
			if _, seen := visited[dep]; seen {
				continue
			}
			r.monMu.Lock()
			depMon, ok := r.monitors[dep]
			r.monMu.Unlock()
			if !ok {
				continue
			}
			wrapped, changed := depMon.propagate(cur.name, cur.t)
			if !changed {
				continue
			}
			visited[dep] = struct{}{}
			r.notifyOutOfDate(depMon, wrapped, false)
			queue = append(queue, work{unit: dep, name: depMon.unitName, t: wrapped})
		}
	}
}

func (r *Repository) notifyOutOfDate(mon *UnitMonitor, t unitTrigger, synchronous bool) {
	metrics.UnitsOutOfDateTotal.Inc()

	var info *schema.UnitInfo
	r.env.View(func(rtx *kv.ReadTxn) error {
		rd := rtxn.New(rtx)
		if i, ok, err := rd.GetUnitInfo(mon.unitCode); err == nil && ok {
			info = i
		}
		return nil
	})

	r.delegate.Publish(&events.Event{
		Type:    events.EventUnitOutOfDate,
		Message: mon.unitName + " is out of date: " + t.description,
		Payload: events.OutOfDate{
			Unit:     info,
			UnitName: mon.unitName,
			Trigger: events.Trigger{
				Path:        t.originalPath,
				ModTimeNano: t.modTimeNanos,
				Description: t.description,
			},
			Synchronous: synchronous,
		},
	})
}

func (r *Repository) explicitOutputEnabled() bool {
	r.outputMu.Lock()
	defer r.outputMu.Unlock()
	return r.explicitOutput
}

// SetExplicitOutputMode toggles §4.6's explicit-output filtering and
// switches the Visibility Filter to match.
func (r *Repository) SetExplicitOutputMode(enabled bool) {
	r.outputMu.Lock()
	r.explicitOutput = enabled
	r.outputMu.Unlock()
	if enabled {
		r.vis.SetMode(visibility.ModeExplicitOutput)
	} else {
		r.vis.SetMode(visibility.ModeMainFile)
	}
}

// AddUnitOutFilePaths registers output paths in the explicit-output
// visible set (§6 "addUnitOutFilePaths"). waitForProcessing drains the
// ingest queue before returning.
func (r *Repository) AddUnitOutFilePaths(paths []string, waitForProcessing bool) {
	r.vis.RegisterOutputFiles(paths)
	if waitForProcessing {
		r.Flush()
	}
}

// RemoveUnitOutFilePaths unregisters output paths.
func (r *Repository) RemoveUnitOutFilePaths(paths []string) {
	r.vis.UnregisterOutputFiles(paths)
}

// Flush synchronously drains the ingest queue. It is best-effort and
// intended for tests and waitForProcessing callers, not a substitute
// for the background worker under normal operation.
func (r *Repository) Flush() {
	for r.queue.len() > 0 {
		r.processBatch()
	}
}

// Env exposes the underlying kv.Environment for the Query Engine and
// Read/Write Transactions built on top of this repository.
func (r *Repository) Env() *kv.Environment { return r.env }

// Visibility exposes the Visibility Filter for registerMainFiles et al.
func (r *Repository) Visibility() *visibility.Filter { return r.vis }

// Delegate exposes the event broker for client subscriptions.
func (r *Repository) Delegate() *events.Broker { return r.delegate }

// Close stops the ingest worker, closes the watcher and environment,
// and — for a non-readonly Repository — performs the close half of
// the pid-scoped workdir dance.
func (r *Repository) Close() error {
	if r.cfg.ReadOnly {
		unregisterOpen(r.cfg.DBPath)
		return r.env.Close()
	}

	close(r.stopCh)
	<-r.doneCh

	if r.source != nil {
		r.source.Close()
	}
	if r.ownsDel {
		r.delegate.Stop()
	}

	if err := r.env.Close(); err != nil {
		unregisterOpen(r.cfg.DBPath)
		return err
	}

	err := closeWorkdir(r.cfg.DBPath, r.workdir)
	unregisterOpen(r.cfg.DBPath)
	return err
}
