package reconciler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// makeStaleWorkdir lays out a v1/p<deadpid>-x workdir whose pid is
// guaranteed not to be alive, matching internal/repo's naming
// convention closely enough for CleanupStaleWorkdirs to find it.
func makeStaleWorkdir(t *testing.T, root string) string {
	t.Helper()
	v1 := filepath.Join(root, "v1")
	require.NoError(t, os.MkdirAll(v1, 0755))
	dir := filepath.Join(v1, "p99999-deadbeef")
	require.NoError(t, os.MkdirAll(dir, 0755))
	return dir
}

func TestSweeperRemovesStaleWorkdirs(t *testing.T) {
	root := t.TempDir()
	dir := makeStaleWorkdir(t, root)

	s := NewSweeper([]string{root}, 20*time.Millisecond)
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		_, err := os.Stat(dir)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSweeperAddRemoveRoot(t *testing.T) {
	s := NewSweeper(nil, time.Hour)
	s.AddRoot("/a")
	s.AddRoot("/b")
	require.ElementsMatch(t, []string{"/a", "/b"}, s.roots)

	s.RemoveRoot("/a")
	require.Equal(t, []string{"/b"}, s.roots)
}

func TestNewSweeperDefaultsPeriod(t *testing.T) {
	s := NewSweeper(nil, 0)
	require.Equal(t, defaultSweepPeriod, s.period)
}
