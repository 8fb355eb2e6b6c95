package reconciler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/indexdb/internal/repo"
	"github.com/cuemby/indexdb/pkg/log"
	"github.com/cuemby/indexdb/pkg/metrics"
)

// Sweeper periodically sweeps one or more database roots for stale
// pid-scoped workdirs — §4.6 step 4's cleanup pass, running as the
// "per-database background cleanup queue" of §5 independent of any
// single Repository's own lifecycle. It reuses the ticker-driven
// reconciliation loop shape for a maintenance sweep instead of state
// reconciliation.
type Sweeper struct {
	period time.Duration
	logger zerolog.Logger

	mu     sync.RWMutex
	roots  []string
	stopCh chan struct{}
}

const defaultSweepPeriod = 5 * time.Minute

// NewSweeper creates a Sweeper over roots, sweeping every period (a
// non-positive period defaults to 5 minutes).
func NewSweeper(roots []string, period time.Duration) *Sweeper {
	if period <= 0 {
		period = defaultSweepPeriod
	}
	return &Sweeper{
		period: period,
		logger: log.WithComponent("cleanup"),
		roots:  append([]string(nil), roots...),
		stopCh: make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (s *Sweeper) Start() {
	go s.run()
}

// Stop stops the sweep loop.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	s.logger.Info().Dur("period", s.period).Msg("cleanup sweeper started")

	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-s.stopCh:
			s.logger.Info().Msg("cleanup sweeper stopped")
			return
		}
	}
}

func (s *Sweeper) sweepOnce() {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.CleanupSweepDuration)
		metrics.CleanupSweepsTotal.Inc()
	}()

	s.mu.RLock()
	roots := append([]string(nil), s.roots...)
	s.mu.RUnlock()

	for _, root := range roots {
		if err := repo.CleanupStaleWorkdirs(root); err != nil {
			s.logger.Error().Err(err).Str("root", root).Msg("cleanup sweep failed")
		}
	}
}

// AddRoot registers another database root to sweep.
func (s *Sweeper) AddRoot(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots = append(s.roots, root)
}

// RemoveRoot unregisters a database root.
func (s *Sweeper) RemoveRoot(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.roots {
		if r == root {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			return
		}
	}
}
