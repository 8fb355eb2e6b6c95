package indexdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/indexdb/internal/reader"
	"github.com/cuemby/indexdb/internal/schema"
	"github.com/cuemby/indexdb/internal/watch"
)

type fakeSource struct {
	ch chan watch.UnitEvent
}

func newFakeSource() *fakeSource { return &fakeSource{ch: make(chan watch.UnitEvent, 16)} }

func (s *fakeSource) Events() <-chan watch.UnitEvent { return s.ch }
func (s *fakeSource) Close() error                   { close(s.ch); return nil }
func (s *fakeSource) push(ev watch.UnitEvent)         { s.ch <- ev }

func openTestDB(t *testing.T, fr *reader.Fake, src watch.Source, opts Options) *DB {
	t.Helper()
	opts.Reader = fr
	opts.Source = src
	db, err := Open(t.TempDir(), t.TempDir(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUnitWithSymbol(fr *reader.Fake) {
	fr.PutUnit(&reader.DecodedUnit{
		Name:         "unit-a",
		ModTimeNanos: 1,
		OutFilePath:  "/out/a.o",
		MainFilePath: "/src/main.c",
		Dependencies: []reader.Dependency{
			{Kind: reader.DependencyRecord, RecordName: "record-a", FilePath: "/src/main.c", ModuleName: "mod"},
		},
	})
	fr.PutRecord("record-a", []reader.DecodedSymbol{
		{
			USR:   "c:@F@foo",
			Name:  "foo",
			Roles: schema.RoleDeclaration | schema.RoleDefinition | schema.RoleCanonical,
			Info:  schema.SymbolInfo{Kind: schema.KindFunction, EligibleForGlobalNameSearch: true, DeclarationIsCanonical: true},
		},
	})
}

func TestOpenIngestsAndQueriesOccurrence(t *testing.T) {
	fr := reader.NewFake()
	seedUnitWithSymbol(fr)

	src := newFakeSource()
	db := openTestDB(t, fr, src, Options{})

	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})
	db.PollForUnitChangesAndWait()

	occs, err := db.OccurrenceByUSR("c:@F@foo", schema.RoleDeclaration)
	require.NoError(t, err)
	require.Len(t, occs, 1)
	require.Equal(t, "foo", occs[0].Name)
}

func TestCanonicalByNameAndKind(t *testing.T) {
	fr := reader.NewFake()
	seedUnitWithSymbol(fr)

	src := newFakeSource()
	db := openTestDB(t, fr, src, Options{})

	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})
	db.PollForUnitChangesAndWait()

	byName, err := db.CanonicalByName("foo")
	require.NoError(t, err)
	require.Len(t, byName, 1)

	byKind, err := db.CanonicalByKind(schema.KindFunction)
	require.NoError(t, err)
	require.Len(t, byKind, 1)
}

func TestFilesOfUnitAndUnitsContainingFile(t *testing.T) {
	fr := reader.NewFake()
	seedUnitWithSymbol(fr)

	src := newFakeSource()
	db := openTestDB(t, fr, src, Options{})

	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})
	db.PollForUnitChangesAndWait()

	files, err := db.FilesOfUnit("unit-a")
	require.NoError(t, err)
	require.Contains(t, files, "/src/main.c")

	units, err := db.UnitsContainingFile("/src/main.c")
	require.NoError(t, err)
	require.Contains(t, units, "unit-a")
}

func TestStatsAndMapSize(t *testing.T) {
	fr := reader.NewFake()
	seedUnitWithSymbol(fr)

	src := newFakeSource()
	db := openTestDB(t, fr, src, Options{})

	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})
	db.PollForUnitChangesAndWait()

	stats, err := db.Stats()
	require.NoError(t, err)
	require.NotEmpty(t, stats)
	require.Greater(t, db.MapSize(), int64(0))
	require.GreaterOrEqual(t, db.Growths(), 0)
}

func TestDumpProviderFileAssociations(t *testing.T) {
	fr := reader.NewFake()
	seedUnitWithSymbol(fr)

	src := newFakeSource()
	db := openTestDB(t, fr, src, Options{})

	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})
	db.PollForUnitChangesAndWait()

	assocs, err := db.DumpProviderFileAssociations("record-a")
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	require.Equal(t, "/src/main.c", assocs[0].FilePath)
	require.Equal(t, "unit-a", assocs[0].UnitName)
}

func TestExplicitOutputModeGating(t *testing.T) {
	fr := reader.NewFake()
	seedUnitWithSymbol(fr)

	src := newFakeSource()
	db := openTestDB(t, fr, src, Options{ExplicitOutputMode: true})

	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})
	db.PollForUnitChangesAndWait()

	occs, err := db.CanonicalByName("foo")
	require.NoError(t, err)
	require.Empty(t, occs, "unregistered output should stay filtered out")

	db.AddUnitOutFilePaths([]string{"/out/a.o"}, false)
	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})
	db.PollForUnitChangesAndWait()

	occs, err = db.CanonicalByName("foo")
	require.NoError(t, err)
	require.Len(t, occs, 1)
}

func TestDelegateReceivesProcessedEvent(t *testing.T) {
	fr := reader.NewFake()
	seedUnitWithSymbol(fr)

	src := newFakeSource()
	db := openTestDB(t, fr, src, Options{})

	sub := db.Delegate().Subscribe()
	defer db.Delegate().Unsubscribe(sub)

	src.push(watch.UnitEvent{Kind: watch.Added, UnitName: "unit-a"})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub:
			if info, ok := ev.Payload.(*schema.UnitInfo); ok && info.Name == "unit-a" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for processed-unit event")
		}
	}
}
