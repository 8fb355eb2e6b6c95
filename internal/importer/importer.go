package importer

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cuemby/indexdb/internal/kv"
	"github.com/cuemby/indexdb/internal/reader"
	"github.com/cuemby/indexdb/internal/rtxn"
	"github.com/cuemby/indexdb/internal/schema"
	"github.com/cuemby/indexdb/internal/wtxn"
	"github.com/cuemby/indexdb/pkg/log"
	"github.com/cuemby/indexdb/pkg/metrics"
)

// State is the per-unit classification of §4.5 step 1.
type State int

const (
	StateMissing State = iota
	StateUpToDate
	StateStale
)

func (s State) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StateUpToDate:
		return "uptodate"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Result summarizes one ImportUnit call, enough for the Artifact
// Repository to drive unit monitors and delegate notifications without
// re-reading the committed UnitInfo.
type Result struct {
	State State
	Info  *schema.UnitInfo
}

// Importer runs the state machine against one Environment using rd to
// decode unit and record artifacts.
type Importer struct {
	env *kv.Environment
	rd  reader.Reader
}

// New returns an Importer bound to env and rd.
func New(env *kv.Environment, rd reader.Reader) *Importer {
	return &Importer{env: env, rd: rd}
}

type dependencyDiff struct {
	fileDepends     []schema.Code
	unitDepends     []schema.Code
	providerDepends []schema.ProviderDependency

	oldFiles     map[schema.Code]struct{}
	oldUnits     map[schema.Code]struct{}
	oldProviders map[schema.ProviderDependency]struct{}
}

// ImportUnit drives the full state machine for unitName (§4.5).
// StateUpToDate performs no mutation at all. StateMissing and
// StateStale both run the full diff-and-reimport path.
func (im *Importer) ImportUnit(unitName string) (Result, error) {
	timer := metrics.NewTimer()
	logger := log.UnitContext(log.DBContext(log.Logger, im.env.Path()), unitName)

	decoded, err := im.rd.ReadUnit(unitName)
	if err != nil {
		// ReaderError (§7): log and skip; caller commits without this
		// unit's contributions.
		logger.Warn().Err(err).Msg("failed to decode unit, skipping import")
		return Result{}, fmt.Errorf("importer: read unit %s: %w", unitName, err)
	}

	unitCode := schema.IDCode(unitName)

	var previous *schema.UnitInfo
	if err := im.env.View(func(rtx *kv.ReadTxn) error {
		r := rtxn.New(rtx)
		info, ok, err := r.GetUnitInfo(unitCode)
		if err != nil {
			return err
		}
		if ok {
			previous = info
		}
		return nil
	}); err != nil {
		return Result{}, err
	}

	state := StateStale
	if previous == nil {
		state = StateMissing
	} else if previous.ModTimeNanos == decoded.ModTimeNanos {
		state = StateUpToDate
	}

	if state == StateUpToDate {
		metrics.UnitsImportedTotal.WithLabelValues(state.String()).Inc()
		timer.ObserveDuration(metrics.UnitImportDuration)
		return Result{State: state, Info: previous}, nil
	}

	var committed *schema.UnitInfo
	err = im.env.WithMapFullRetry(func(wtx *kv.WriteTxn) error {
		w := wtxn.New(wtx)
		info, err := im.reimport(w, unitCode, unitName, decoded, previous, logger)
		if err != nil {
			return err
		}
		committed = info
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	metrics.UnitsImportedTotal.WithLabelValues(state.String()).Inc()
	timer.ObserveDuration(metrics.UnitImportDuration)
	logger.Info().Str("state", state.String()).Int64("modtime", decoded.ModTimeNanos).Msg("unit imported")

	return Result{State: state, Info: committed}, nil
}

// reimport implements §4.5 steps 2-6 inside a single write transaction.
func (im *Importer) reimport(w *wtxn.Writer, unitCode schema.Code, unitName string, decoded *reader.DecodedUnit, previous *schema.UnitInfo, logger zerolog.Logger) (*schema.UnitInfo, error) {
	diff := seedDiff(previous)

	for _, dep := range decoded.Dependencies {
		switch dep.Kind {
		case reader.DependencyFile:
			fileCode := w.AddFilePath(dep.FilePath)
			diff.fileDepends = append(diff.fileDepends, fileCode)

		case reader.DependencyUnit:
			unitDepCode := w.AddUnitFileIdentifier(dep.UnitName)
			diff.unitDepends = append(diff.unitDepends, unitDepCode)

		case reader.DependencyRecord:
			providerCode, _ := w.AddProviderName(dep.RecordName)
			fileCode := w.AddFilePath(dep.FilePath)
			moduleCode, _ := w.AddModuleName(dep.ModuleName)

			symbols, err := im.rd.ReadRecordSymbols(dep.RecordName)
			if err != nil {
				// ReaderError: skip this record's contribution but
				// keep importing the rest of the unit.
				log.ProviderContext(logger, dep.RecordName).Warn().Err(err).Msg("failed to decode record, skipping")
				continue
			}
			for _, sym := range symbols {
				w.AddSymbolInfo(providerCode, sym.USR, sym.Name, sym.Info, sym.Roles, sym.RelatedRoles)
			}
			if containsTestSymbols(symbols) {
				w.SetProviderContainsTestSymbols(providerCode)
			}

			w.AddFileAssociationForProvider(providerCode, fileCode, unitCode, dep.NanoTime, moduleCode, dep.IsSystem)
			diff.providerDepends = append(diff.providerDepends, schema.ProviderDependency{ProviderCode: providerCode, FileCode: fileCode})
		}
	}

	newFileSet := toFileSet(diff.fileDepends, diff.providerDepends)
	newUnitSet := toSet(diff.unitDepends)
	newProviderSet := toProviderSet(diff.providerDepends)

	for file := range diff.oldFiles {
		if _, ok := newFileSet[file]; !ok {
			w.RemoveUnitFileDependency(unitCode, file)
		}
	}
	for unitDep := range diff.oldUnits {
		if _, ok := newUnitSet[unitDep]; !ok {
			w.RemoveUnitUnitDependency(unitCode, unitDep)
		}
	}
	for pd := range diff.oldProviders {
		if _, ok := newProviderSet[pd]; !ok {
			w.RemoveFileAssociationFromProvider(pd.ProviderCode, pd.FileCode, unitCode)
		}
	}

	for _, file := range diff.fileDepends {
		w.AddUnitFileDependency(unitCode, file)
	}
	for _, unitDep := range diff.unitDepends {
		w.AddUnitUnitDependency(unitCode, unitDep)
	}
	for _, pd := range diff.providerDepends {
		w.AddUnitFileDependency(unitCode, pd.FileCode)
	}

	hasTestSymbols := false
	for _, pd := range diff.providerDepends {
		if w.ProviderContainsTestSymbols(pd.ProviderCode) {
			hasTestSymbols = true
			break
		}
	}

	var mainFileCode schema.Code
	var flags schema.UnitFlags
	if decoded.MainFilePath != "" {
		mainFileCode = w.AddFilePath(decoded.MainFilePath)
		flags.Set(schema.UnitHasMainFile, true)
	}

	var sysrootCode schema.Code
	if decoded.SysrootPath != "" {
		sysrootCode = w.AddFilePath(decoded.SysrootPath)
		flags.Set(schema.UnitHasSysroot, true)
	}

	outFileCode := w.AddFilePath(decoded.OutFilePath)
	targetCode, _ := w.AddTargetName(decoded.Target)

	flags.Set(schema.UnitIsSystem, decoded.IsSystem)
	flags.Set(schema.UnitHasTestSymbols, hasTestSymbols)

	info := &schema.UnitInfo{
		Name:            unitName,
		MainFileCode:    mainFileCode,
		OutFileCode:     outFileCode,
		SysrootCode:     sysrootCode,
		TargetCode:      targetCode,
		ModTimeNanos:    decoded.ModTimeNanos,
		Flags:           flags,
		ProviderKind:    decoded.ProviderKind,
		FileDepends:     diff.fileDepends,
		UnitDepends:     diff.unitDepends,
		ProviderDepends: diff.providerDepends,
	}
	w.AddUnitInfo(info)

	return info, nil
}

// DeleteUnit removes a unit whose artifact has vanished (§4.6), via
// wtxn.RemoveUnitData, guarded by the same MapFull retry policy.
func (im *Importer) DeleteUnit(unitName string) error {
	unitCode := schema.IDCode(unitName)
	err := im.env.WithMapFullRetry(func(wtx *kv.WriteTxn) error {
		w := wtxn.New(wtx)
		return w.RemoveUnitData(unitCode)
	})
	if err == nil {
		metrics.UnitsDeletedTotal.Inc()
	}
	return err
}

func seedDiff(previous *schema.UnitInfo) *dependencyDiff {
	d := &dependencyDiff{
		oldFiles:     make(map[schema.Code]struct{}),
		oldUnits:     make(map[schema.Code]struct{}),
		oldProviders: make(map[schema.ProviderDependency]struct{}),
	}
	if previous == nil {
		return d
	}
	for _, f := range previous.FileDepends {
		d.oldFiles[f] = struct{}{}
	}
	for _, pd := range previous.ProviderDepends {
		d.oldFiles[pd.FileCode] = struct{}{}
		d.oldProviders[pd] = struct{}{}
	}
	for _, u := range previous.UnitDepends {
		d.oldUnits[u] = struct{}{}
	}
	return d
}

func toSet(codes []schema.Code) map[schema.Code]struct{} {
	s := make(map[schema.Code]struct{}, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func toFileSet(fileDepends []schema.Code, providerDepends []schema.ProviderDependency) map[schema.Code]struct{} {
	s := toSet(fileDepends)
	for _, pd := range providerDepends {
		s[pd.FileCode] = struct{}{}
	}
	return s
}

func toProviderSet(pds []schema.ProviderDependency) map[schema.ProviderDependency]struct{} {
	s := make(map[schema.ProviderDependency]struct{}, len(pds))
	for _, pd := range pds {
		s[pd] = struct{}{}
	}
	return s
}

func containsTestSymbols(symbols []reader.DecodedSymbol) bool {
	for _, s := range symbols {
		if s.Info.IsUnitTestProperty {
			return true
		}
	}
	return false
}
