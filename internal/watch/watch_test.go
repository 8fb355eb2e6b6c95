package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func collectUntil(t *testing.T, ch <-chan UnitEvent, n int, timeout time.Duration) []UnitEvent {
	t.Helper()
	var got []UnitEvent
	deadline := time.After(timeout)
	for len(got) < n {
		select {
		case ev, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %d: %+v", n, len(got), got)
		}
	}
	return got
}

func TestFSWatcherInitialScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unit-a"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unit-b"), []byte("y"), 0644))

	fw, err := NewFSWatcher(dir)
	require.NoError(t, err)
	defer fw.Close()

	events := collectUntil(t, fw.Events(), 2, 2*time.Second)
	names := map[string]bool{}
	for _, ev := range events {
		require.Equal(t, Added, ev.Kind)
		require.True(t, ev.IsInitialScan)
		names[ev.UnitName] = true
	}
	require.True(t, names["unit-a"])
	require.True(t, names["unit-b"])
}

func TestFSWatcherRelaysCreateWriteRemove(t *testing.T) {
	dir := t.TempDir()

	fw, err := NewFSWatcher(dir)
	require.NoError(t, err)
	defer fw.Close()

	// Drain the (empty) initial scan burst: nothing to wait for since
	// the directory started empty, but give the scan goroutine a beat.
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(dir, "unit-c")
	require.NoError(t, os.WriteFile(path, []byte("1"), 0644))
	createEv := collectUntil(t, fw.Events(), 1, 2*time.Second)[0]
	require.Equal(t, Added, createEv.Kind)
	require.Equal(t, "unit-c", createEv.UnitName)

	require.NoError(t, os.WriteFile(path, []byte("22"), 0644))
	writeEv := collectUntil(t, fw.Events(), 1, 2*time.Second)[0]
	require.Equal(t, Modified, writeEv.Kind)

	require.NoError(t, os.Remove(path))
	removeEv := collectUntil(t, fw.Events(), 1, 2*time.Second)[0]
	require.Equal(t, Removed, removeEv.Kind)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "added", Added.String())
	require.Equal(t, "removed", Removed.String())
	require.Equal(t, "modified", Modified.String())
	require.Equal(t, "directory_deleted", DirectoryDeleted.String())
	require.Equal(t, "unknown", Kind(99).String())
}
