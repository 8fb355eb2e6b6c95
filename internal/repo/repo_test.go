package repo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/indexdb/internal/kv"
	"github.com/cuemby/indexdb/internal/reader"
	"github.com/cuemby/indexdb/internal/rtxn"
	"github.com/cuemby/indexdb/internal/schema"
	"github.com/cuemby/indexdb/internal/visibility"
	"github.com/cuemby/indexdb/internal/watch"
	"github.com/cuemby/indexdb/pkg/events"
)

// fakeSource is a watch.Source a test drives by hand, standing in for
// FSWatcher so tests control exactly which events arrive and when.
type fakeSource struct {
	ch     chan watch.UnitEvent
	closed bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan watch.UnitEvent, 64)}
}

func (s *fakeSource) Events() <-chan watch.UnitEvent { return s.ch }

func (s *fakeSource) Close() error {
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}

func (s *fakeSource) push(ev watch.UnitEvent) { s.ch <- ev }

func openTestRepo(t *testing.T, rd reader.Reader, src watch.Source) (*Repository, string) {
	t.Helper()
	dbDir := t.TempDir()
	r, err := Open(Config{
		StorePath: t.TempDir(),
		DBPath:    dbDir,
		Reader:    rd,
		Source:    src,
	})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r, dbDir
}

func getUnitInfo(t *testing.T, r *Repository, name string) (*schema.UnitInfo, bool) {
	t.Helper()
	var info *schema.UnitInfo
	var ok bool
	require.NoError(t, r.Env().View(func(rtx *kv.ReadTxn) error {
		rd := rtxn.New(rtx)
		var err error
		info, ok, err = rd.GetUnitInfoByName(name)
		return err
	}))
	return info, ok
}

func TestOpenImportsAddedUnit(t *testing.T) {
	fr := reader.NewFake()
	fr.PutUnit(&reader.DecodedUnit{Name: "unit-a", ModTimeNanos: 1, OutFilePath: "/out/a.o"})

	src := newFakeSource()
	r, _ := openTestRepo(t, fr, src)

	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})
	r.Flush()

	info, ok := getUnitInfo(t, r, "unit-a")
	require.True(t, ok)
	require.Equal(t, "unit-a", info.Name)
}

func TestProcessBatchDeletesRemovedUnit(t *testing.T) {
	fr := reader.NewFake()
	fr.PutUnit(&reader.DecodedUnit{Name: "unit-a", ModTimeNanos: 1, OutFilePath: "/out/a.o"})

	src := newFakeSource()
	r, _ := openTestRepo(t, fr, src)

	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})
	r.Flush()
	_, ok := getUnitInfo(t, r, "unit-a")
	require.True(t, ok)

	fr.RemoveUnit("unit-a")
	src.push(watch.UnitEvent{Kind: watch.Removed, UnitName: "unit-a"})
	r.Flush()

	_, ok = getUnitInfo(t, r, "unit-a")
	require.False(t, ok)
}

func TestProcessBatchEnqueuesUnitDependencies(t *testing.T) {
	fr := reader.NewFake()
	fr.PutUnit(&reader.DecodedUnit{
		Name:         "unit-main",
		ModTimeNanos: 1,
		OutFilePath:  "/out/main.o",
		Dependencies: []reader.Dependency{
			{Kind: reader.DependencyUnit, UnitName: "unit-dep"},
		},
	})
	fr.PutUnit(&reader.DecodedUnit{Name: "unit-dep", ModTimeNanos: 1, OutFilePath: "/out/dep.o"})

	src := newFakeSource()
	r, _ := openTestRepo(t, fr, src)

	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-main"})
	r.Flush()
	// The dependency unit is enqueued as a side effect of importing
	// unit-main; give the serial worker a second pass to pick it up.
	r.Flush()

	require.Eventually(t, func() bool {
		_, ok := getUnitInfo(t, r, "unit-dep")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestExplicitOutputModeFiltersUnregisteredUnits(t *testing.T) {
	fr := reader.NewFake()
	fr.PutUnit(&reader.DecodedUnit{Name: "unit-a", ModTimeNanos: 1, OutFilePath: "/out/a.o"})

	src := newFakeSource()
	dbDir := t.TempDir()
	r, err := Open(Config{
		StorePath:          t.TempDir(),
		DBPath:             dbDir,
		Reader:             fr,
		Source:             src,
		ExplicitOutputMode: true,
	})
	require.NoError(t, err)
	defer r.Close()

	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})
	r.Flush()
	_, ok := getUnitInfo(t, r, "unit-a")
	require.False(t, ok, "unit with an unregistered output should be filtered out")

	r.AddUnitOutFilePaths([]string{"/out/a.o"}, false)
	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})
	r.Flush()
	_, ok = getUnitInfo(t, r, "unit-a")
	require.True(t, ok, "unit with a registered output should import")
}

func TestNotifyChangedPathsPropagatesOutOfDate(t *testing.T) {
	dir := t.TempDir()
	srcFile := filepath.Join(dir, "a.c")
	require.NoError(t, os.WriteFile(srcFile, []byte("x"), 0644))

	// Give the unit an import-time modtime ahead of the source file's
	// real mtime, so the only out-of-date trigger this test can observe
	// comes from NotifyChangedPaths, not a spurious one at import.
	fr := reader.NewFake()
	fr.PutUnit(&reader.DecodedUnit{
		Name:         "unit-a",
		ModTimeNanos: time.Now().Add(2 * time.Hour).UnixNano(),
		OutFilePath:  "/out/a.o",
		Dependencies: []reader.Dependency{
			{Kind: reader.DependencyFile, FilePath: srcFile},
		},
	})

	src := newFakeSource()
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	dbDir := t.TempDir()
	r, err := Open(Config{
		StorePath: t.TempDir(),
		DBPath:    dbDir,
		Reader:    fr,
		Source:    src,
		Delegate:  broker,
	})
	require.NoError(t, err)
	defer r.Close()

	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})
	r.Flush()

	// Touch the source file with a modtime beyond the unit's import-time
	// modtime, then ask the repository to reconsider units rooted under
	// dir.
	later := time.Now().Add(4 * time.Hour)
	require.NoError(t, os.Chtimes(srcFile, later, later))
	r.NotifyChangedPaths([]string{dir})

	found := false
	deadline := time.After(2 * time.Second)
	for !found {
		select {
		case ev := <-sub:
			if ev.Type == events.EventUnitOutOfDate {
				ood := ev.Payload.(events.OutOfDate)
				if ood.UnitName == "unit-a" {
					found = true
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for out-of-date notification")
		}
	}
}

func TestCloseThenReopenReusesSavedWorkdir(t *testing.T) {
	fr := reader.NewFake()
	fr.PutUnit(&reader.DecodedUnit{Name: "unit-a", ModTimeNanos: 1, OutFilePath: "/out/a.o"})

	src1 := newFakeSource()
	dbDir := t.TempDir()
	r1, err := Open(Config{
		StorePath: t.TempDir(),
		DBPath:    dbDir,
		Reader:    fr,
		Source:    src1,
	})
	require.NoError(t, err)

	src1.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})
	r1.Flush()
	require.NoError(t, r1.Close())

	saved := filepath.Join(versionDir(dbDir), "saved")
	_, statErr := os.Stat(saved)
	require.NoError(t, statErr, "closing should rename the live workdir back to saved/")

	src2 := newFakeSource()
	r2, err := Open(Config{
		StorePath: t.TempDir(),
		DBPath:    dbDir,
		Reader:    fr,
		Source:    src2,
	})
	require.NoError(t, err)
	defer r2.Close()

	info, ok := getUnitInfo(t, r2, "unit-a")
	require.True(t, ok)
	require.Equal(t, "unit-a", info.Name)
}

func TestOpenDeduplicatesWithinProcess(t *testing.T) {
	fr := reader.NewFake()
	dbDir := t.TempDir()
	src := newFakeSource()

	r1, err := Open(Config{StorePath: t.TempDir(), DBPath: dbDir, Reader: fr, Source: src})
	require.NoError(t, err)
	defer r1.Close()

	r2, err := Open(Config{StorePath: t.TempDir(), DBPath: dbDir, Reader: fr, Source: newFakeSource()})
	require.NoError(t, err)

	require.Same(t, r1, r2)
}

func TestReadOnlyOpenSeesCommittedData(t *testing.T) {
	fr := reader.NewFake()
	fr.PutUnit(&reader.DecodedUnit{Name: "unit-a", ModTimeNanos: 1, OutFilePath: "/out/a.o"})

	src := newFakeSource()
	dbDir := t.TempDir()
	r, err := Open(Config{StorePath: t.TempDir(), DBPath: dbDir, Reader: fr, Source: src})
	require.NoError(t, err)

	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})
	r.Flush()
	require.NoError(t, r.Close())

	ro, err := Open(Config{DBPath: dbDir, ReadOnly: true})
	require.NoError(t, err)
	defer ro.Close()

	info, ok := getUnitInfo(t, ro, "unit-a")
	require.True(t, ok)
	require.Equal(t, "unit-a", info.Name)
}

func TestVisibilityExposesFilter(t *testing.T) {
	fr := reader.NewFake()
	src := newFakeSource()
	r, _ := openTestRepo(t, fr, src)
	require.NotNil(t, r.Visibility())
	require.IsType(t, &visibility.Filter{}, r.Visibility())
}
