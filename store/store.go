// Package store defines the upstream-store contract the tailer consumes: a
// full snapshot listing for startup, a max-sequence probe, and a bounded
// change-log page for steady-state polling.
package store

import (
	"context"
	"iter"

	"github.com/khalidsaidi/eldapo/model"
)

// ChangeRow is one row of the upstream change log: the monotonic sequence
// number the tailer uses as its polling watermark, plus the entry as of
// that change. Entry is nil when the change log's left join to the
// entries table misses — an id/rev mismatch or a future retract — in
// which case the tailer advances its watermark without applying anything.
type ChangeRow struct {
	Seq   int64
	Entry *model.Entry
}

// Store is the three-operation contract a tailer polls against.
type Store interface {
	// ListLatest iterates every entry's latest row, for the startup
	// snapshot load. Iteration order is unspecified.
	ListLatest(ctx context.Context) iter.Seq2[model.Entry, error]

	// MaxSeq returns the highest sequence number in the change log at
	// call time, used to establish the tailer's initial watermark after
	// a snapshot load.
	MaxSeq(ctx context.Context) (int64, error)

	// NextChanges returns up to batchSize change rows with seq > lastSeq,
	// ordered ascending by seq.
	NextChanges(ctx context.Context, lastSeq int64, batchSize int) ([]ChangeRow, error)
}
