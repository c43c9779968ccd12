// Package registry implements the document registry: doc-id allocation,
// the per-doc IndexedDoc projection, the descending (updated_at, id) sort
// order and its rank index, and the restricted card projection.
//
// Registry itself holds no lock: callers (the top-level Directory) must
// serialize access under a single RWMutex held for the duration of a read
// or a write section.
package registry

import (
	"sort"

	"github.com/khalidsaidi/eldapo/core"
	"github.com/khalidsaidi/eldapo/model"
	"github.com/khalidsaidi/eldapo/util"
)

// Doc is the indexed-document projection: an Entry plus its doc id and
// case-folded copies of Name and Description.
type Doc struct {
	DocID    core.DocID
	Entry    model.Entry
	NameFold string
	DescFold string
}

// CardKeys is the allow-list of attribute keys surfaced in the card
// projection.
var CardKeys = []string{"tag", "capability", "env", "status", "visibility", "endpoint", "auth", "owner"}

// Card is the restricted card view of a Doc.
type Card struct {
	ID          string              `json:"id"`
	Rev         int64               `json:"rev"`
	Type        string              `json:"type"`
	Name        string              `json:"name"`
	Namespace   string              `json:"namespace"`
	Version     string              `json:"version"`
	Description string              `json:"description"`
	Attrs       map[string][]string `json:"attrs,omitempty"`
}

// BuildCard projects d onto its card view: the allow-listed attribute keys
// with non-empty values only.
func BuildCard(d *Doc) Card {
	c := Card{
		ID:          d.Entry.ID,
		Rev:         d.Entry.Rev,
		Type:        d.Entry.Type,
		Name:        d.Entry.Name,
		Namespace:   d.Entry.Namespace,
		Version:     d.Entry.Version,
		Description: d.Entry.Description,
	}
	for _, key := range CardKeys {
		if vs, ok := d.Entry.Attrs[key]; ok && len(vs) > 0 {
			if c.Attrs == nil {
				c.Attrs = make(map[string][]string, len(CardKeys))
			}
			c.Attrs[key] = vs
		}
	}
	return c
}

// Registry holds doc-id allocation, the per-doc record, and the sort order.
type Registry struct {
	idToDocID map[string]core.DocID
	docs      map[core.DocID]*Doc
	nextDocID core.DocID

	sortOrder []core.DocID
	rank      map[core.DocID]int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		idToDocID: make(map[string]core.DocID),
		docs:      make(map[core.DocID]*Doc),
		rank:      make(map[core.DocID]int),
	}
}

// Get resolves a stable id to its doc id.
func (r *Registry) Get(id string) (core.DocID, bool) {
	docID, ok := r.idToDocID[id]
	return docID, ok
}

// Doc returns the IndexedDoc for a doc id.
func (r *Registry) Doc(docID core.DocID) (*Doc, bool) {
	d, ok := r.docs[docID]
	return d, ok
}

// Len returns the number of live docs.
func (r *Registry) Len() int {
	return len(r.docs)
}

// Upsert resolves id to a doc id, allocating one if id is unknown.
//
// If id is unknown, a new doc id is allocated starting at 1 and never
// reused. If the incoming rev is not strictly greater than
// the stored rev for that id, the update is ignored and ok is false; the
// caller must not touch postings or visibility in that case.
//
// On success, old is the previous Doc (nil if this is a new id) so the
// caller can diff attribute tokens and visibility membership before
// installing the new Doc via Install.
func (r *Registry) Upsert(entry model.Entry) (docID core.DocID, old *Doc, ok bool) {
	existingID, known := r.idToDocID[entry.ID]
	if known {
		existing := r.docs[existingID]
		if entry.Rev <= existing.Entry.Rev {
			return existingID, existing, false
		}
		return existingID, existing, true
	}

	r.nextDocID++
	docID = r.nextDocID
	r.idToDocID[entry.ID] = docID
	return docID, nil, true
}

// Install writes the new Doc for docID, replacing any previous record. The
// caller must have already reconciled postings and visibility using the
// `old` Doc returned by Upsert.
func (r *Registry) Install(docID core.DocID, entry model.Entry) *Doc {
	d := &Doc{
		DocID:    docID,
		Entry:    entry,
		NameFold: util.FoldASCII(entry.Name),
		DescFold: util.FoldASCII(entry.Description),
	}
	r.docs[docID] = d
	return d
}

// AllDocIDs returns every doc id currently registered, in no particular
// order (used by Resort to rebuild the sort order).
func (r *Registry) AllDocIDs() []core.DocID {
	out := make([]core.DocID, 0, len(r.docs))
	for id := range r.docs {
		out = append(out, id)
	}
	return out
}

// Resort rebuilds the descending (updated_at, id) sort order and rank index
// over every currently registered doc id.
func (r *Registry) Resort() {
	ids := r.AllDocIDs()
	sort.Slice(ids, func(i, j int) bool {
		return lessDesc(r.docs[ids[i]].Entry, r.docs[ids[j]].Entry)
	})
	r.sortOrder = ids
	r.rank = make(map[core.DocID]int, len(ids))
	for i, id := range ids {
		r.rank[id] = i
	}
}

// lessDesc reports whether a sorts strictly before b under (updated_at
// desc, id desc).
func lessDesc(a, b model.Entry) bool {
	if a.UpdatedAt != b.UpdatedAt {
		return a.UpdatedAt > b.UpdatedAt
	}
	return a.ID > b.ID
}

// SortOrder returns the current sort vector (descending updated_at, id).
func (r *Registry) SortOrder() []core.DocID {
	return r.sortOrder
}

// Rank returns the 0-based position of docID in the sort order.
func (r *Registry) Rank(docID core.DocID) (int, bool) {
	rnk, ok := r.rank[docID]
	return rnk, ok
}

// InsertSorted maintains the sort order incrementally after a single
// tail-update upsert. It removes docID's old position (if any) and
// re-inserts it at the correct rank, then renumbers ranks. This is O(n) in
// the number of docs;
// acceptable because tail updates apply one doc at a time and n is bounded
// by the live document count, not by request volume.
func (r *Registry) InsertSorted(docID core.DocID) {
	// Remove existing occurrence, if any.
	for i, id := range r.sortOrder {
		if id == docID {
			r.sortOrder = append(r.sortOrder[:i], r.sortOrder[i+1:]...)
			break
		}
	}

	d := r.docs[docID]
	pos := sort.Search(len(r.sortOrder), func(i int) bool {
		return lessDesc(d.Entry, r.docs[r.sortOrder[i]].Entry)
	})
	r.sortOrder = append(r.sortOrder, 0)
	copy(r.sortOrder[pos+1:], r.sortOrder[pos:])
	r.sortOrder[pos] = docID

	r.rank = make(map[core.DocID]int, len(r.sortOrder))
	for i, id := range r.sortOrder {
		r.rank[id] = i
	}
}
