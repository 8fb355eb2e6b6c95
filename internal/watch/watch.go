package watch

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/cuemby/indexdb/pkg/log"
)

// Kind is one of the four unit-event kinds §6 names.
type Kind int

const (
	Added Kind = iota
	Removed
	Modified
	DirectoryDeleted
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	case DirectoryDeleted:
		return "directory_deleted"
	default:
		return "unknown"
	}
}

// UnitEvent is the `(kind, unitName, isInitialScan)` tuple of §6.
type UnitEvent struct {
	Kind          Kind
	UnitName      string
	IsInitialScan bool
}

// Source is everything internal/repo needs from a watcher. FSWatcher
// is the default implementation; tests and embedders may supply their
// own (e.g. a fake that replays a fixed event script).
type Source interface {
	Events() <-chan UnitEvent
	Close() error
}

// FSWatcher watches a directory of unit artifact files — one file per
// unit, named after the unit — and translates fsnotify events into
// UnitEvents. It performs the initial directory scan as a burst of
// Added events with IsInitialScan set, matching the "watcher replays
// existing state on startup" contract every real watcher backend
// needs to satisfy.
type FSWatcher struct {
	w   *fsnotify.Watcher
	out chan UnitEvent
	dir string
}

// NewFSWatcher opens a watch on dir and begins emitting events. The
// initial scan and the fsnotify relay both run on background
// goroutines; Events() delivers both.
func NewFSWatcher(dir string) (*FSWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	fw := &FSWatcher{w: w, out: make(chan UnitEvent, 256), dir: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.Close()
		return nil, err
	}

	go fw.initialScan(entries)
	go fw.loop()

	return fw, nil
}

func (fw *FSWatcher) initialScan(entries []os.DirEntry) {
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fw.emit(Added, e.Name(), true)
	}
}

func (fw *FSWatcher) loop() {
	defer close(fw.out)
	for {
		select {
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			name := filepath.Base(ev.Name)
			switch {
			case ev.Op&fsnotify.Create != 0:
				fw.emit(Added, name, false)
			case ev.Op&fsnotify.Write != 0:
				fw.emit(Modified, name, false)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				fw.emit(Removed, name, false)
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			log.WithComponent("watch").Warn().Err(err).Str("dir", fw.dir).Msg("fsnotify error")
		}
	}
}

func (fw *FSWatcher) emit(kind Kind, unitName string, initialScan bool) {
	select {
	case fw.out <- UnitEvent{Kind: kind, UnitName: unitName, IsInitialScan: initialScan}:
	default:
		// Out channel full: the event is dropped. The directory is
		// listed only once, at NewFSWatcher, so the unit is seen again
		// only through a later event for it or a new watcher's scan.
	}
}

// Events returns the channel of translated unit events.
func (fw *FSWatcher) Events() <-chan UnitEvent { return fw.out }

// Close stops the fsnotify watch. The background loop drains and
// closes the output channel once fsnotify's own channels close.
func (fw *FSWatcher) Close() error {
	return fw.w.Close()
}
