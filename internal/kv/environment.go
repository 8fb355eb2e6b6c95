package kv

import (
	"fmt"
	"sync"
	"sync/atomic"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/indexdb/internal/schema"
	"github.com/cuemby/indexdb/pkg/log"
	"github.com/cuemby/indexdb/pkg/metrics"
)

// Environment is a single bbolt file plus the sub-databases and the
// policy map-size cap that §4.6's MapFull guard enforces on top of it.
//
// Read transactions are admitted through a sync.RWMutex used purely as
// a barrier: View holds the read lock for the duration of the bbolt
// read transaction, and IncreaseMapSize takes the write lock, which
// blocks until every in-flight read transaction has finished and
// refuses new ones until the resize completes. That is precisely the
// "barrier that blocks new read transactions and waits for in-flight
// ones to complete" the spec describes, expressed with the stdlib
// primitive built for exactly this pattern instead of a hand-rolled
// dispatch-group counter.
type Environment struct {
	db   *bolt.DB
	path string

	growMu sync.RWMutex

	mapSize    atomic.Int64
	maxGrowths int
	growths    atomic.Int32
}

// Options configures Open.
type Options struct {
	// InitialMapSize is the starting policy cap, in bytes. It is also
	// passed to bbolt as an InitialMmapSize hint.
	InitialMapSize int64
	// MaxGrowths bounds how many times WithMapFullRetry will double
	// the cap before giving up (§4.6, default 6).
	MaxGrowths int
	// ReadOnly opens the underlying file read-only, for secondary
	// (query-only) processes that must never attempt a write.
	ReadOnly bool
}

const (
	defaultInitialMapSize = 64 << 20
	defaultMaxGrowths     = 6
)

// Open opens (creating if absent) the bbolt file at path and ensures
// every bucket in schema.AllBuckets exists. It does not itself manage
// the pid-scoped working directory dance around path; that is
// internal/repo's job (§4.6) — this layer only owns the single file.
func Open(path string, opts Options) (*Environment, error) {
	if opts.InitialMapSize <= 0 {
		opts.InitialMapSize = defaultInitialMapSize
	}
	if opts.MaxGrowths <= 0 {
		opts.MaxGrowths = defaultMaxGrowths
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		ReadOnly:        opts.ReadOnly,
		InitialMmapSize: int(opts.InitialMapSize),
	})
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", path, err)
	}

	env := &Environment{db: db, path: path, maxGrowths: opts.MaxGrowths}
	env.mapSize.Store(opts.InitialMapSize)

	if !opts.ReadOnly {
		if err := db.Update(func(tx *bolt.Tx) error {
			for _, name := range schema.AllBuckets {
				if _, err := tx.CreateBucketIfNotExists(name); err != nil {
					return fmt.Errorf("kv: create bucket %s: %w", name, err)
				}
			}
			return nil
		}); err != nil {
			db.Close()
			return nil, err
		}
	}

	metrics.MapSizeBytes.Set(float64(opts.InitialMapSize))
	log.WithDB(path).Debug().Int64("initial_map_size", opts.InitialMapSize).Msg("environment opened")
	return env, nil
}

// Close flushes and closes the underlying file. Callers that manage a
// pid-scoped workdir are responsible for the rename-to-saved/ dance
// after Close returns successfully.
func (e *Environment) Close() error {
	return e.db.Close()
}

// Path returns the filesystem path the environment was opened at.
func (e *Environment) Path() string { return e.path }

// MapSize returns the current policy cap, in bytes.
func (e *Environment) MapSize() int64 { return e.mapSize.Load() }

// Growths returns how many times the map size has been doubled since
// open.
func (e *Environment) Growths() int { return int(e.growths.Load()) }

// View runs fn in a read transaction. It blocks while a map-size
// growth barrier is active, and otherwise runs concurrently with any
// number of other read transactions, matching bbolt's native MVCC
// read concurrency.
func (e *Environment) View(fn func(rtx *ReadTxn) error) error {
	e.growMu.RLock()
	defer e.growMu.RUnlock()

	return e.db.View(func(tx *bolt.Tx) error {
		return fn(&ReadTxn{tx: tx})
	})
}

// Update runs fn in a single write transaction. If, after fn returns
// successfully, the transaction's net size exceeds the environment's
// current policy map size cap, Update aborts the transaction (nothing
// is committed — bbolt rolls back the whole write) and returns
// ErrMapFull. Callers that want the standard doubling-retry behavior
// should use WithMapFullRetry instead of calling Update directly.
func (e *Environment) Update(fn func(wtx *WriteTxn) error) error {
	e.growMu.RLock()
	defer e.growMu.RUnlock()

	return e.db.Update(func(tx *bolt.Tx) error {
		if err := fn(&WriteTxn{tx: tx}); err != nil {
			return err
		}
		if tx.Size() > e.mapSize.Load() {
			return ErrMapFull
		}
		return nil
	})
}

// IncreaseMapSize doubles the policy map size cap. It acquires the
// growth barrier exclusively, so it waits for every in-flight View to
// finish and blocks new ones from starting until it returns.
func (e *Environment) IncreaseMapSize() {
	e.growMu.Lock()
	defer e.growMu.Unlock()

	next := e.mapSize.Load() * 2
	e.mapSize.Store(next)
	e.growths.Add(1)

	metrics.MapGrowthsTotal.Inc()
	metrics.MapSizeBytes.Set(float64(next))
	log.WithDB(e.path).Info().Int64("new_map_size", next).Msg("map size doubled")
}

// WithMapFullRetry runs fn under Update, doubling the map size and
// retrying from scratch on ErrMapFull up to the environment's
// configured MaxGrowths, per §4.6's MapFull guard. fn must be safe to
// call more than once: on ErrMapFull the whole write transaction was
// rolled back, so no partial effects from a prior attempt survive.
func (e *Environment) WithMapFullRetry(fn func(wtx *WriteTxn) error) error {
	for attempt := 0; ; attempt++ {
		err := e.Update(fn)
		if err == nil {
			return nil
		}
		if err != ErrMapFull {
			return err
		}
		if attempt >= e.maxGrowths {
			return fmt.Errorf("%w: %w after %d growths", ErrTooManyGrowths, ErrMapFull, attempt)
		}
		metrics.MapFullRetriesTotal.Inc()
		e.IncreaseMapSize()
	}
}

// Stats reports per-bucket key counts, used by the CLI stats
// subcommand and by diagnostics.
func (e *Environment) Stats() (map[string]int, error) {
	out := make(map[string]int, len(schema.AllBuckets))
	err := e.View(func(rtx *ReadTxn) error {
		for _, name := range schema.AllBuckets {
			b := rtx.tx.Bucket(name)
			if b == nil {
				out[string(name)] = 0
				continue
			}
			out[string(name)] = b.Stats().KeyN
		}
		return nil
	})
	return out, err
}
