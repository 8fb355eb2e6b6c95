// Package watch provides the default filesystem-backed implementation
// of the unit-event source §6 describes as external to the core
// ("Unit events (from the watcher)"). The core only depends on the
// watch.Source interface; FSWatcher is a reference adapter, grounded
// on fsnotify, that internal/repo uses out of the box.
package watch
