// Package tailer implements the change tailer: a startup snapshot load
// followed by a fixed-interval poll loop against the upstream store
// contract, applying changes to a Directory idempotently and in seq order.
package tailer

import (
	"context"
	"fmt"
	"iter"
	"time"

	"golang.org/x/sync/semaphore"

	eldapo "github.com/khalidsaidi/eldapo"
	"github.com/khalidsaidi/eldapo/model"
	"github.com/khalidsaidi/eldapo/store"
)

// DefaultPollInterval and DefaultBatchSize are the tailer's documented
// defaults (500ms, 500 rows).
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultBatchSize    = 500
)

// Tailer drives a Directory from an upstream Store. inFlight is a
// capacity-1 semaphore so a tick that fires while a poll is already
// running is dropped rather than queued: at most one poll runs at a time.
type Tailer struct {
	store        store.Store
	dir          *directoryAdapter
	pollInterval time.Duration
	batchSize    int
	logger       *eldapo.Logger
	lastSeq      int64
	inFlight     *semaphore.Weighted
}

// directoryAdapter holds the three eldapo.Directory write methods the
// tailer actually calls, as function values.
type directoryAdapter struct {
	LoadSnapshotFn func(entries iter.Seq2[model.Entry, error]) error
	ApplyChangeFn  func(entry model.Entry) bool
	SetLastSeqFn   func(seq int64)
}

// New creates a Tailer. loadSnapshot, applyChange, and setLastSeq are the
// write methods of the eldapo.Directory being driven, taken as closures so
// tests can substitute recorders; the package still imports the top-level
// package for its Logger. loadSnapshot is a distinct, batch-shaped hook from applyChange: the
// startup load installs every row with no per-row resort and resorts
// once, while applyChange resorts incrementally per steady-state change.
func New(s store.Store, loadSnapshot func(iter.Seq2[model.Entry, error]) error, applyChange func(model.Entry) bool, setLastSeq func(int64), opts ...Option) *Tailer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Tailer{
		store: s,
		dir: &directoryAdapter{
			LoadSnapshotFn: loadSnapshot,
			ApplyChangeFn:  applyChange,
			SetLastSeqFn:   setLastSeq,
		},
		pollInterval: o.pollInterval,
		batchSize:    o.batchSize,
		logger:       o.logger,
		inFlight:     semaphore.NewWeighted(1),
	}
}

type options struct {
	pollInterval time.Duration
	batchSize    int
	logger       *eldapo.Logger
}

// Option configures a Tailer.
type Option func(*options)

// WithPollInterval overrides the poll tick interval.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithBatchSize overrides the per-fetch batch size.
func WithBatchSize(n int) Option {
	return func(o *options) { o.batchSize = n }
}

// WithLogger overrides the tailer's logger.
func WithLogger(l *eldapo.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func defaultOptions() *options {
	return &options{
		pollInterval: DefaultPollInterval,
		batchSize:    DefaultBatchSize,
		logger:       eldapo.NewLogger(nil),
	}
}

// LoadSnapshot batch-installs every latest row through LoadSnapshotFn (no
// per-row resort), then reads max(seq) to establish the initial watermark.
func (t *Tailer) LoadSnapshot(ctx context.Context) error {
	if err := t.dir.LoadSnapshotFn(t.store.ListLatest(ctx)); err != nil {
		return fmt.Errorf("tailer: load snapshot: %w", err)
	}

	seq, err := t.store.MaxSeq(ctx)
	if err != nil {
		return fmt.Errorf("tailer: max seq: %w", err)
	}
	t.lastSeq = seq
	t.dir.SetLastSeqFn(seq)
	return nil
}

// Run starts the fixed-interval poll loop; it blocks until ctx is
// cancelled.
func (t *Tailer) Run(ctx context.Context) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// tick attempts one poll cycle, dropping the tick entirely if a previous
// poll is still running.
func (t *Tailer) tick(ctx context.Context) {
	if !t.inFlight.TryAcquire(1) {
		return
	}
	defer t.inFlight.Release(1)

	rows, err := t.pollOnce(ctx)
	t.logger.LogPoll(t.lastSeq, rows, err)
}

// pollOnce fetches and applies change batches until a batch returns fewer
// rows than batchSize. On error the cycle aborts without advancing
// lastSeq past the failing row. It returns the number of change rows
// fetched across the cycle, including rows with no entry and rows whose
// rev was not applied.
func (t *Tailer) pollOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		rows, err := t.store.NextChanges(ctx, t.lastSeq, t.batchSize)
		if err != nil {
			return total, fmt.Errorf("next changes: %w", err)
		}
		for _, row := range rows {
			t.applyRow(row)
		}
		total += len(rows)
		if len(rows) < t.batchSize {
			return total, nil
		}
	}
}

// applyRow advances the watermark unconditionally but only calls
// ApplyChangeFn when the change row's joined entry is present: a
// left-join miss is a no-op, not a zero-value entry.
func (t *Tailer) applyRow(row store.ChangeRow) {
	t.lastSeq = row.Seq
	t.dir.SetLastSeqFn(row.Seq)
	if row.Entry != nil {
		t.dir.ApplyChangeFn(*row.Entry)
	}
}
