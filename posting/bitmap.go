// Package posting implements the token -> doc-id posting store: a
// compressed sorted set of doc ids per token, backed by Roaring bitmaps,
// with separate equality and presence maps.
package posting

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/khalidsaidi/eldapo/core"
)

// Bitmap is a compressed sorted set of DocIDs supporting the operations the
// filter evaluator and query planner need: union, intersection, difference,
// membership, cardinality, and ascending iteration.
type Bitmap struct {
	rb *roaring.Bitmap
}

// New creates a new empty bitmap.
func New() *Bitmap {
	return &Bitmap{rb: roaring.New()}
}

// FromDocIDs creates a bitmap containing exactly the given ids.
func FromDocIDs(ids ...core.DocID) *Bitmap {
	b := New()
	for _, id := range ids {
		b.Add(id)
	}
	return b
}

// Add adds a DocID to the bitmap.
func (b *Bitmap) Add(id core.DocID) {
	b.rb.Add(uint32(id))
}

// Remove removes a DocID from the bitmap.
func (b *Bitmap) Remove(id core.DocID) {
	b.rb.Remove(uint32(id))
}

// Contains reports whether id is in the bitmap.
func (b *Bitmap) Contains(id core.DocID) bool {
	return b.rb.Contains(uint32(id))
}

// IsEmpty reports whether the bitmap has no elements.
func (b *Bitmap) IsEmpty() bool {
	return b.rb.IsEmpty()
}

// Cardinality returns the number of elements in the bitmap.
func (b *Bitmap) Cardinality() uint64 {
	return b.rb.GetCardinality()
}

// Clone returns a deep copy of the bitmap, safe to mutate independently.
func (b *Bitmap) Clone() *Bitmap {
	return &Bitmap{rb: b.rb.Clone()}
}

// And intersects other into b in place.
func (b *Bitmap) And(other *Bitmap) {
	b.rb.And(other.rb)
}

// Or unions other into b in place.
func (b *Bitmap) Or(other *Bitmap) {
	b.rb.Or(other.rb)
}

// AndNot removes from b every element that is present in other.
func (b *Bitmap) AndNot(other *Bitmap) {
	b.rb.AndNot(other.rb)
}

// Iterator returns an ascending iterator over the bitmap's elements.
func (b *Bitmap) Iterator() iter.Seq[core.DocID] {
	return func(yield func(core.DocID) bool) {
		it := b.rb.Iterator()
		for it.HasNext() {
			if !yield(core.DocID(it.Next())) {
				return
			}
		}
	}
}

// ToSlice materializes the bitmap's elements in ascending order.
func (b *Bitmap) ToSlice() []core.DocID {
	out := make([]core.DocID, 0, b.Cardinality())
	for id := range b.Iterator() {
		out = append(out, id)
	}
	return out
}

// GetSizeInBytes returns the approximate in-memory size of the bitmap.
func (b *Bitmap) GetSizeInBytes() uint64 {
	return b.rb.GetSizeInBytes()
}
