package eldapo

import (
	"fmt"
	"iter"

	"github.com/khalidsaidi/eldapo/core"
	"github.com/khalidsaidi/eldapo/model"
)

// installEntry applies the registry rev-check and, on success, reconciles
// postings, visibility, and the universe bitmap. It does not maintain the
// sort order: callers choose between a single batch Resort (snapshot
// load) and an incremental InsertSorted (one applied change).
//
// Callers must hold d.mu in write mode.
func (d *Directory) installEntry(entry model.Entry) (core.DocID, bool) {
	docID, old, ok := d.reg.Upsert(entry)
	if !ok {
		return docID, false
	}

	var oldEntry *model.Entry
	if old != nil {
		oldEntry = &old.Entry
		for _, tok := range tokensForEntry(oldEntry) {
			d.postings.Remove(tok, docID)
		}
	}

	d.reg.Install(docID, entry)
	for _, tok := range tokensForEntry(&entry) {
		d.postings.Add(tok, docID)
	}
	d.vis.Reindex(docID, oldEntry, &entry)
	d.universe.Add(docID)
	return docID, true
}

// LoadSnapshot batch-installs every row from entries with no per-row
// resort, then resorts once.
func (d *Directory) LoadSnapshot(entries iter.Seq2[model.Entry, error]) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for entry, err := range entries {
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		d.installEntry(entry)
	}
	d.reg.Resort()
	return nil
}

// ApplyChange applies one steady-state change: idempotent (a rev not
// strictly greater than the stored rev is discarded) and maintains the
// sort order incrementally. Reports whether the change was applied.
func (d *Directory) ApplyChange(entry model.Entry) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	docID, applied := d.installEntry(entry)
	d.logger.LogApplyChange(entry.ID, entry.Rev, applied)
	if !applied {
		return false
	}
	d.reg.InsertSorted(docID)
	return true
}

// SetLastSeq advances the tailer watermark surfaced by Stats. It never
// moves backward.
func (d *Directory) SetLastSeq(seq int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if seq > d.lastSeq {
		d.lastSeq = seq
	}
}
