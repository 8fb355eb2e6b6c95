package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/cuemby/indexdb/internal/schema"
	"github.com/cuemby/indexdb/pkg/log"
)

// versionDir returns root/v<FORMAT_VERSION>, the §6 on-disk layout
// root for one database generation.
func versionDir(root string) string {
	return filepath.Join(root, "v"+strconv.Itoa(schema.FormatVersion))
}

func pidDirName() string {
	return fmt.Sprintf("p%d-%s", os.Getpid(), uuid.NewString()[:8])
}

// openWorkdir implements §4.6 steps 1-2: ensure root/v<N>/ exists,
// then atomically rename saved/ to a fresh p<pid>-<uniq>/ (or create
// that directory directly, starting a new database, if saved/ is
// absent).
func openWorkdir(root string) (dir string, isNew bool, err error) {
	vdir := versionDir(root)
	if err := os.MkdirAll(vdir, 0755); err != nil {
		return "", false, fmt.Errorf("repo: mkdir %s: %w", vdir, err)
	}

	saved := filepath.Join(vdir, "saved")
	live := filepath.Join(vdir, pidDirName())

	if _, statErr := os.Stat(saved); statErr == nil {
		if err := os.Rename(saved, live); err != nil {
			return "", false, fmt.Errorf("repo: rename saved to %s: %w", live, err)
		}
		return live, false, nil
	} else if !os.IsNotExist(statErr) {
		return "", false, fmt.Errorf("repo: stat %s: %w", saved, statErr)
	}

	if err := os.MkdirAll(live, 0755); err != nil {
		return "", false, fmt.Errorf("repo: mkdir %s: %w", live, err)
	}
	return live, true, nil
}

// closeWorkdir implements §4.6 step 3: rename the live per-process
// directory back to saved/, first rotating any stale saved/ left
// behind (it should not exist in the normal case, since open claimed
// it) out of the way as p<pid>-<uniq>-saved-dead.
func closeWorkdir(root, liveDir string) error {
	vdir := versionDir(root)
	saved := filepath.Join(vdir, "saved")

	if _, err := os.Stat(saved); err == nil {
		dead := filepath.Join(vdir, pidDirName()+"-saved-dead")
		if err := os.Rename(saved, dead); err != nil {
			return fmt.Errorf("repo: rotate stale saved dir: %w", err)
		}
	}
	return os.Rename(liveDir, saved)
}

// markCorrupted implements §4.6 step 5: when failedDir (the
// just-claimed live directory, originally saved/) fails to open as a
// store, rename it to corrupted/ — preserving the previous corrupted
// generation's removal so only the most recent failure is kept — and
// log the path for operator inspection.
func markCorrupted(root, failedDir string) error {
	vdir := versionDir(root)
	corrupted := filepath.Join(vdir, "corrupted")

	os.RemoveAll(corrupted)
	if err := os.Rename(failedDir, corrupted); err != nil {
		return fmt.Errorf("repo: rename to corrupted: %w", err)
	}
	log.ComponentContext(log.DBContext(log.Logger, root), "repo").Warn().Str("path", corrupted).Msg("saved database failed to open, preserved as corrupted and starting fresh")
	return nil
}

// CleanupStaleWorkdirs sweeps root/v<N>/ for p<pid>-* directories
// whose process is no longer running and any -dead suffixed
// directory, removing both (§4.6 step 4). It never touches a live
// directory belonging to a running process, including the caller's
// own.
func CleanupStaleWorkdirs(root string) error {
	vdir := versionDir(root)
	entries, err := os.ReadDir(vdir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case strings.HasSuffix(name, "-dead"):
			os.RemoveAll(filepath.Join(vdir, name))
		case strings.HasPrefix(name, "p") && strings.Contains(name, "-"):
			if pid, ok := pidFromDirName(name); ok && !processAlive(pid) {
				os.RemoveAll(filepath.Join(vdir, name))
			}
		}
	}
	return nil
}

func pidFromDirName(name string) (int, bool) {
	rest := strings.TrimPrefix(name, "p")
	idx := strings.Index(rest, "-")
	if idx < 0 {
		return 0, false
	}
	pid, err := strconv.Atoi(rest[:idx])
	if err != nil {
		return 0, false
	}
	return pid, true
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// FindProcess always succeeds on Unix; signal 0 probes liveness
	// without delivering anything to the target process.
	return proc.Signal(syscall.Signal(0)) == nil
}

// openEnvs is the process-wide open-database de-duplication map of
// §4.6: a single process must not open the same on-disk database
// twice. Repository.Open holds openEnvMu across its filesystem work and
// records the Repository only once it is initialized, so a second
// concurrent Open for the same path blocks until the first either
// fails (leaving no entry) or succeeds (and callers share its handle).
var (
	openEnvMu sync.Mutex
	openEnvs  = make(map[string]*Repository)
)

// unregisterOpen releases dbPath's slot in openEnvs, allowing a
// subsequent Open for the same path to create a fresh Repository
// instead of handing back the one that just closed.
func unregisterOpen(dbPath string) {
	openEnvMu.Lock()
	delete(openEnvs, dbPath)
	openEnvMu.Unlock()
}
