// Package query implements the search planner and paginator: combining the
// filter's matching bitmap with the requester's visibility bitmap,
// choosing between a selective-materialize and an ordered-scan strategy,
// and applying the free-text and cursor predicates.
package query

import (
	"sort"
	"strings"

	"github.com/khalidsaidi/eldapo/core"
	"github.com/khalidsaidi/eldapo/filter"
	"github.com/khalidsaidi/eldapo/model"
	"github.com/khalidsaidi/eldapo/posting"
	"github.com/khalidsaidi/eldapo/registry"
	"github.com/khalidsaidi/eldapo/util"
)

// SelectiveThreshold and SelectiveUniverseFraction gate the strategy
// choice: selective-materialize is used when the candidate set is at
// most SelectiveThreshold items, or at most 1/SelectiveUniverseFraction of
// the universe, whichever is larger; otherwise ordered-scan is used.
const (
	SelectiveThreshold        = 5000
	SelectiveUniverseFraction = 100
)

// Index is the read surface the planner needs from the top-level
// directory snapshot.
type Index interface {
	Evaluate(node *filter.Node) *posting.Bitmap
	Allowed(r model.Requester) *posting.Bitmap
	Universe() *posting.Bitmap
	SortOrder() []core.DocID
	Rank(docID core.DocID) (int, bool)
	Doc(docID core.DocID) (*registry.Doc, bool)
}

// Request is one search call's parameters.
type Request struct {
	Filter    *filter.Node // nil matches everything
	Q         string       // free-text substring, matched against name/description
	Limit     int
	Cursor    *Cursor
	Requester model.Requester
}

// Result is one page of search results.
type Result struct {
	Items      []registry.Card
	NextCursor string // empty when there is no further page
}

// SearchUnsorted serves the HTTP surface's `sort=none` mode: candidates are
// walked in ascending doc-id order with no sort-order or cursor semantics.
// Callers must reject a request that combines sort=none with a cursor
// before calling this (an unsorted listing cannot be paginated).
func SearchUnsorted(idx Index, req Request) Result {
	candidate := candidateBitmap(idx, req.Filter)
	candidate.And(idx.Allowed(req.Requester))

	qFold := util.FoldASCII(req.Q)
	var out []registry.Card
	for docID := range candidate.Iterator() {
		d, ok := idx.Doc(docID)
		if !ok {
			continue
		}
		if !matchesFreeText(idx, docID, qFold) {
			continue
		}
		out = append(out, registry.BuildCard(d))
		if len(out) == req.Limit {
			break
		}
	}
	return Result{Items: out}
}

// Search executes req against idx in full: filter evaluation, visibility
// intersection, strategy choice, free-text and cursor filtering, and
// next-cursor emission.
func Search(idx Index, req Request) Result {
	candidate := candidateBitmap(idx, req.Filter)
	candidate.And(idx.Allowed(req.Requester))

	universe := idx.Universe().Cardinality()
	threshold := uint64(SelectiveThreshold)
	if frac := universe / SelectiveUniverseFraction; frac > threshold {
		threshold = frac
	}

	if candidate.Cardinality() <= threshold {
		return searchSelective(idx, req, candidate)
	}
	return searchOrderedScan(idx, req, candidate)
}

func candidateBitmap(idx Index, node *filter.Node) *posting.Bitmap {
	if node == nil {
		return idx.Universe().Clone()
	}
	return idx.Evaluate(node)
}

func matchesFreeText(idx Index, docID core.DocID, qFold string) bool {
	if qFold == "" {
		return true
	}
	d, ok := idx.Doc(docID)
	if !ok {
		return false
	}
	return strings.Contains(d.NameFold, qFold) || strings.Contains(d.DescFold, qFold)
}

// searchSelective materializes the candidate set, sorts it by global rank,
// and walks it in memory. It only emits a next_cursor when exactly Limit
// items were produced: a short page is known to be the last.
func searchSelective(idx Index, req Request, candidate *posting.Bitmap) Result {
	ids := candidate.ToSlice()
	sort.Slice(ids, func(i, j int) bool {
		ri, _ := idx.Rank(ids[i])
		rj, _ := idx.Rank(ids[j])
		return ri < rj
	})

	qFold := util.FoldASCII(req.Q)
	var out []registry.Card
	var lastCursor Cursor
	for _, docID := range ids {
		d, ok := idx.Doc(docID)
		if !ok {
			continue
		}
		if req.Cursor != nil && !req.Cursor.after(d.Entry.UpdatedAt, d.Entry.ID) {
			continue
		}
		if !matchesFreeText(idx, docID, qFold) {
			continue
		}
		out = append(out, registry.BuildCard(d))
		lastCursor = Cursor{UpdatedAt: d.Entry.UpdatedAt, ID: d.Entry.ID}
		if len(out) == req.Limit {
			break
		}
	}

	res := Result{Items: out}
	if len(out) == req.Limit && req.Limit > 0 {
		res.NextCursor = lastCursor.Encode()
	}
	return res
}

// searchOrderedScan walks the global sort order once, testing membership in
// candidate and the free-text predicate per doc, starting just after the
// cursor position if one is given.
func searchOrderedScan(idx Index, req Request, candidate *posting.Bitmap) Result {
	order := idx.SortOrder()
	qFold := util.FoldASCII(req.Q)

	var out []registry.Card
	var lastCursor Cursor
	seenCursor := req.Cursor == nil
	for _, docID := range order {
		d, ok := idx.Doc(docID)
		if !ok {
			continue
		}
		if !seenCursor {
			if req.Cursor.after(d.Entry.UpdatedAt, d.Entry.ID) {
				seenCursor = true
			} else {
				continue
			}
		}
		if !candidate.Contains(docID) {
			continue
		}
		if !matchesFreeText(idx, docID, qFold) {
			continue
		}
		out = append(out, registry.BuildCard(d))
		lastCursor = Cursor{UpdatedAt: d.Entry.UpdatedAt, ID: d.Entry.ID}
		if len(out) == req.Limit {
			break
		}
	}

	res := Result{Items: out}
	if len(out) == req.Limit && req.Limit > 0 {
		res.NextCursor = lastCursor.Encode()
	}
	return res
}
