// Package visibility implements the visibility model: three class bitmaps
// (public, internal, restricted) plus a group -> bitmap map for restricted
// entries, and the requester-to-allowed-set computation.
package visibility

import (
	"github.com/khalidsaidi/eldapo/core"
	"github.com/khalidsaidi/eldapo/model"
	"github.com/khalidsaidi/eldapo/posting"
)

// Set holds the three visibility-class bitmaps and the per-group bitmaps
// for restricted entries. A doc belongs to exactly one class bitmap and,
// if restricted, to the bitmap of every group in its allowed_group list.
type Set struct {
	public     *posting.Bitmap
	internal   *posting.Bitmap
	restricted *posting.Bitmap
	groups     map[string]*posting.Bitmap
}

// New creates an empty visibility set.
func New() *Set {
	return &Set{
		public:     posting.New(),
		internal:   posting.New(),
		restricted: posting.New(),
		groups:     make(map[string]*posting.Bitmap),
	}
}

// classBitmap returns the bitmap for a visibility class.
func (s *Set) classBitmap(v model.Visibility) *posting.Bitmap {
	switch v {
	case model.VisibilityInternal:
		return s.internal
	case model.VisibilityRestricted:
		return s.restricted
	default:
		return s.public
	}
}

// Remove clears docID from every bitmap it might be in. Safe to call even
// if docID was never indexed.
func (s *Set) Remove(docID core.DocID, entry *model.Entry) {
	if entry == nil {
		return
	}
	s.classBitmap(entry.VisibilityClass()).Remove(docID)
	for _, group := range entry.AllowedGroups() {
		if b, ok := s.groups[group]; ok {
			b.Remove(docID)
			if b.IsEmpty() {
				delete(s.groups, group)
			}
		}
	}
}

// Add indexes docID under entry's visibility class and, if restricted,
// every group in its allowed_group attribute.
func (s *Set) Add(docID core.DocID, entry *model.Entry) {
	s.classBitmap(entry.VisibilityClass()).Add(docID)
	if entry.VisibilityClass() != model.VisibilityRestricted {
		return
	}
	for _, group := range entry.AllowedGroups() {
		b, ok := s.groups[group]
		if !ok {
			b = posting.New()
			s.groups[group] = b
		}
		b.Add(docID)
	}
}

// Reindex moves docID from old's visibility membership to entry's. old may
// be nil for a newly inserted doc.
func (s *Set) Reindex(docID core.DocID, old *model.Entry, entry *model.Entry) {
	s.Remove(docID, old)
	s.Add(docID, entry)
}

// Allowed computes the set of doc ids visible to r: public, plus internal
// if authenticated, plus the union of the requester's group bitmaps.
func (s *Set) Allowed(r model.Requester) *posting.Bitmap {
	allowed := s.public.Clone()
	if r.IsAuthenticated {
		allowed.Or(s.internal)
	}
	for _, group := range r.Groups {
		if b, ok := s.groups[group]; ok {
			allowed.Or(b)
		}
	}
	return allowed
}
