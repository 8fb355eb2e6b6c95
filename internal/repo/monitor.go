package repo

import (
	"sync"

	"github.com/cuemby/indexdb/internal/rtxn"
	"github.com/cuemby/indexdb/internal/schema"
)

// unitTrigger is one entry of a monitor's out-of-date trigger map,
// keyed by the path (real or wrapped) that produced it.
type unitTrigger struct {
	modTimeNanos int64
	description  string
	originalPath string
}

// UnitMonitor tracks one non-system unit's staleness state (§4.6): the
// unit's modtime at import time, the paths among its file
// dependencies, and the triggers discovered since.
type UnitMonitor struct {
	mu sync.Mutex

	unitCode     schema.Code
	unitName     string
	modTimeNanos int64
	filePaths    map[schema.Code]string
	triggers     map[string]unitTrigger
}

func newUnitMonitor(unitCode schema.Code, unitName string, info *schema.UnitInfo, r *rtxn.Reader) *UnitMonitor {
	m := &UnitMonitor{
		unitCode: unitCode,
		unitName: unitName,
		triggers: make(map[string]unitTrigger),
	}
	m.reimportLocked(info, r)
	return m
}

// reimport refreshes the monitor after a unit has been re-imported:
// the tracked file set is rebuilt from the fresh UnitInfo and any
// trigger that the new modtime has already absorbed is dropped.
func (m *UnitMonitor) reimport(info *schema.UnitInfo, r *rtxn.Reader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reimportLocked(info, r)
}

func (m *UnitMonitor) reimportLocked(info *schema.UnitInfo, r *rtxn.Reader) {
	m.modTimeNanos = info.ModTimeNanos
	m.filePaths = make(map[schema.Code]string, len(info.FileDepends)+len(info.ProviderDepends))
	for _, f := range info.FileDepends {
		if path, ok := r.ResolveFilePath(f); ok {
			m.filePaths[f] = path
		}
	}
	for _, pd := range info.ProviderDepends {
		if _, seen := m.filePaths[pd.FileCode]; seen {
			continue
		}
		if path, ok := r.ResolveFilePath(pd.FileCode); ok {
			m.filePaths[pd.FileCode] = path
		}
	}
	for path, t := range m.triggers {
		if t.modTimeNanos <= m.modTimeNanos {
			delete(m.triggers, path)
		}
	}
}

// checkForOutOfDate implements the §4.6 FS-event rule: a trigger is
// recorded (and reported to the caller) only the first time a given
// path's modtime surpasses both the unit's import-time modtime and
// any previously recorded modtime for that same path.
func (m *UnitMonitor) checkForOutOfDate(path string, modTimeNanos int64) (unitTrigger, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if modTimeNanos <= m.modTimeNanos {
		return unitTrigger{}, false
	}
	if existing, ok := m.triggers[path]; ok && existing.modTimeNanos >= modTimeNanos {
		return unitTrigger{}, false
	}

	t := unitTrigger{modTimeNanos: modTimeNanos, description: path, originalPath: path}
	m.triggers[path] = t
	return t, true
}

// propagate implements §4.6's dependency-cascade rule: if this
// monitor's unit depends on fromUnitName and its modtime trails t,
// record a wrapped trigger ("unit(fromUnitName) -> ...") that
// preserves t's original file for further cascading.
func (m *UnitMonitor) propagate(fromUnitName string, t unitTrigger) (unitTrigger, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.modTimeNanos <= m.modTimeNanos {
		return unitTrigger{}, false
	}
	key := "unit:" + fromUnitName + ":" + t.originalPath
	if existing, ok := m.triggers[key]; ok && existing.modTimeNanos >= t.modTimeNanos {
		return unitTrigger{}, false
	}
	wrapped := unitTrigger{
		modTimeNanos: t.modTimeNanos,
		description:  "unit(" + fromUnitName + ") -> " + t.description,
		originalPath: t.originalPath,
	}
	m.triggers[key] = wrapped
	return wrapped, true
}

// snapshotTriggers returns a copy of the currently known triggers, for
// inheriting into a dependent unit's monitor (§4.6 "inherits triggers
// from user unit-deps").
func (m *UnitMonitor) snapshotTriggers() []unitTrigger {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]unitTrigger, 0, len(m.triggers))
	for _, t := range m.triggers {
		out = append(out, t)
	}
	return out
}

// FilePaths returns a snapshot of the monitored file-dependency paths.
func (m *UnitMonitor) FilePaths() map[schema.Code]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[schema.Code]string, len(m.filePaths))
	for k, v := range m.filePaths {
		out[k] = v
	}
	return out
}

// ModTime returns the unit's modtime as of its last import.
func (m *UnitMonitor) ModTime() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modTimeNanos
}
