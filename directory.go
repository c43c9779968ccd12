// Package eldapo is the top-level capability directory search core: the
// process-wide Directory type that ties together the filter grammar, the
// posting store, the document registry, the visibility model, the query
// planner, and the change tailer into the request surface's four
// operations: search, read, batch_get, and stats.
package eldapo

import (
	"fmt"
	"sync"
	"time"

	"github.com/khalidsaidi/eldapo/core"
	"github.com/khalidsaidi/eldapo/eval"
	"github.com/khalidsaidi/eldapo/filter"
	"github.com/khalidsaidi/eldapo/model"
	"github.com/khalidsaidi/eldapo/posting"
	"github.com/khalidsaidi/eldapo/query"
	"github.com/khalidsaidi/eldapo/registry"
	"github.com/khalidsaidi/eldapo/visibility"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// Directory is the process-wide search core. It holds one logical
// snapshot (registry, postings, visibility, universe, sort order) behind
// a single RWMutex: readers (Search/Read/BatchGet/Stats) take it in read
// mode for the duration of the call, the tailer takes it in write mode
// for the duration of one applied change.
type Directory struct {
	mu sync.RWMutex

	reg      *registry.Registry
	postings *posting.Store
	vis      *visibility.Set
	universe *posting.Bitmap
	cache    *filter.Cache

	logger   *Logger
	lastSeq  int64
	buildAt  time.Time
}

// New creates an empty Directory.
func New(opts ...Option) *Directory {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Directory{
		reg:      registry.New(),
		postings: posting.NewStore(),
		vis:      visibility.New(),
		universe: posting.New(),
		cache:    filter.NewCache(o.filterCacheSize),
		logger:   o.logger,
		buildAt:  startTime(),
	}
}

// startTime returns the Directory's construction time (the current wall
// clock); Stats reports BuildMS as the time elapsed since then.
func startTime() time.Time { return time.Now() }

// --- eval.Context ---

// GetPosting implements eval.Context. Callers must hold at least a read
// lock.
func (d *Directory) GetPosting(node *filter.Node) *posting.Bitmap {
	resolved := filter.ResolveKey(node.Key)
	switch node.Kind {
	case filter.KindEq:
		tok, err := eqToken(resolved, node.Value)
		if err != nil {
			return nil
		}
		return d.postings.Get(tok)
	case filter.KindPresent:
		return d.postings.Get(presenceToken(resolved))
	default:
		return nil
	}
}

// Universe implements eval.Context and query.Index.
func (d *Directory) Universe() *posting.Bitmap { return d.universe }

// --- query.Index ---

func (d *Directory) Evaluate(node *filter.Node) *posting.Bitmap { return eval.Evaluate(node, d) }
func (d *Directory) Allowed(r model.Requester) *posting.Bitmap  { return d.vis.Allowed(r) }
func (d *Directory) SortOrder() []core.DocID                    { return d.reg.SortOrder() }
func (d *Directory) Rank(docID core.DocID) (int, bool)          { return d.reg.Rank(docID) }
func (d *Directory) Doc(docID core.DocID) (*registry.Doc, bool) { return d.reg.Doc(docID) }

// SearchRequest is the public input to Search.
type SearchRequest struct {
	Filter    string // raw filter grammar string; empty matches everything
	Q         string
	Limit     int
	Cursor    string // base64url cursor; empty starts from the first page
	Sort      string // "updated_at_desc" (default) or "none"
	Requester model.Requester
}

// SearchResult is the public output of Search.
type SearchResult struct {
	Items      []registry.Card
	NextCursor string
}

// Search parses and validates the filter, clamps the limit, decodes the
// cursor, and delegates to the query planner under a read lock.
func (d *Directory) Search(req SearchRequest) (result SearchResult, err error) {
	defer func() {
		d.logger.LogSearch(req.Filter, req.Limit, len(result.Items), req.Requester.Subject, err)
	}()

	var node *filter.Node
	if req.Filter != "" {
		n, err := filter.ParseCached(d.cache, req.Filter)
		if err != nil {
			return SearchResult{}, translateFilterError(err)
		}
		if err := validateFilter(n); err != nil {
			return SearchResult{}, translateFilterError(err)
		}
		node = n
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	sortMode := req.Sort
	if sortMode == "" {
		sortMode = "updated_at_desc"
	}
	if sortMode != "updated_at_desc" && sortMode != "none" {
		return SearchResult{}, fmt.Errorf("%w: sort must be updated_at_desc or none", ErrInvalidRequest)
	}
	if sortMode == "none" && req.Cursor != "" {
		return SearchResult{}, fmt.Errorf("%w: cursor requires sort=updated_at_desc", ErrInvalidRequest)
	}

	var cur *query.Cursor
	if req.Cursor != "" {
		c, err := query.DecodeCursor(req.Cursor)
		if err != nil {
			return SearchResult{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		cur = &c
	}

	qreq := query.Request{Filter: node, Q: req.Q, Limit: limit, Cursor: cur, Requester: req.Requester}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var res query.Result
	if sortMode == "none" {
		res = query.SearchUnsorted(d, qreq)
	} else {
		res = query.Search(d, qreq)
	}
	return SearchResult{Items: res.Items, NextCursor: res.NextCursor}, nil
}

// Hit is the full view of a single entry: the authoritative Entry plus
// its card projection, so callers can choose which to emit.
type Hit struct {
	Entry model.Entry
	Card  registry.Card
}

// Read looks a single id up directly: id -> doc id -> indexed doc.
// Visibility denial is indistinguishable from absence: both return
// ErrNotFound.
func (d *Directory) Read(id string, r model.Requester) (Hit, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.readLocked(id, r)
}

func (d *Directory) readLocked(id string, r model.Requester) (Hit, error) {
	docID, ok := d.reg.Get(id)
	if !ok {
		return Hit{}, ErrNotFound
	}
	doc, ok := d.reg.Doc(docID)
	if !ok {
		return Hit{}, ErrNotFound
	}
	if !d.vis.Allowed(r).Contains(docID) {
		return Hit{}, ErrNotFound
	}
	return Hit{Entry: doc.Entry, Card: registry.BuildCard(doc)}, nil
}

// BatchGetResult is the output of BatchGet.
type BatchGetResult struct {
	Items   []Hit
	Omitted int
}

// BatchGet looks up every id, counting visibility-denied or unknown ids
// as omitted, preserving input order for the ids found.
func (d *Directory) BatchGet(ids []string, r model.Requester) BatchGetResult {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var res BatchGetResult
	for _, id := range ids {
		hit, err := d.readLocked(id, r)
		if err != nil {
			res.Omitted++
			continue
		}
		res.Items = append(res.Items, hit)
	}
	return res
}

// Stats reports directory size, posting counts, and tailer progress.
type Stats struct {
	Docs                int
	EqTokens            int
	PresenceTokens      int
	PostingsCardinality uint64
	MemoryApproxBytes   uint64
	BuildMS             int64
	LastSeq             int64
}

// Stats returns a snapshot of the directory's size and tailer watermark.
func (d *Directory) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	eqTokens, presenceTokens, totalCard := d.postings.Stats()
	return Stats{
		Docs:                d.reg.Len(),
		EqTokens:            eqTokens,
		PresenceTokens:      presenceTokens,
		PostingsCardinality: totalCard,
		MemoryApproxBytes:   d.universe.GetSizeInBytes(),
		BuildMS:             time.Since(d.buildAt).Milliseconds(),
		LastSeq:             d.lastSeq,
	}
}

// LastSeq returns the tailer's current watermark.
func (d *Directory) LastSeq() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastSeq
}
