package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khalidsaidi/eldapo/model"
)

func entry(id string, rev int64, updatedAt string) model.Entry {
	return model.Entry{ID: id, Rev: rev, UpdatedAt: updatedAt, Name: "Name " + id, Description: "desc " + id}
}

func TestUpsertAllocatesDocIDsStartingAtOneNeverReused(t *testing.T) {
	r := New()
	id1, old1, ok1 := r.Upsert(entry("a", 1, "2026-01-01T00:00:00Z"))
	require.True(t, ok1)
	assert.Nil(t, old1)
	assert.EqualValues(t, 1, id1)
	r.Install(id1, entry("a", 1, "2026-01-01T00:00:00Z"))

	id2, _, ok2 := r.Upsert(entry("b", 1, "2026-01-01T00:00:00Z"))
	require.True(t, ok2)
	assert.EqualValues(t, 2, id2)
}

func TestUpsertRejectsNonIncreasingRev(t *testing.T) {
	r := New()
	id, _, ok := r.Upsert(entry("a", 5, "2026-01-01T00:00:00Z"))
	require.True(t, ok)
	r.Install(id, entry("a", 5, "2026-01-01T00:00:00Z"))

	_, old, ok := r.Upsert(entry("a", 5, "2026-01-02T00:00:00Z"))
	assert.False(t, ok, "rev equal to stored rev must be rejected")
	require.NotNil(t, old)
	assert.Equal(t, int64(5), old.Entry.Rev)

	_, _, ok = r.Upsert(entry("a", 4, "2026-01-02T00:00:00Z"))
	assert.False(t, ok, "rev lower than stored rev must be rejected")
}

func TestUpsertAcceptsStrictlyGreaterRev(t *testing.T) {
	r := New()
	id, _, _ := r.Upsert(entry("a", 1, "2026-01-01T00:00:00Z"))
	r.Install(id, entry("a", 1, "2026-01-01T00:00:00Z"))

	gotID, old, ok := r.Upsert(entry("a", 2, "2026-01-02T00:00:00Z"))
	assert.True(t, ok)
	assert.Equal(t, id, gotID, "the doc id must not change across updates to the same stable id")
	require.NotNil(t, old)
}

func TestResortOrdersDescendingByUpdatedAtThenID(t *testing.T) {
	r := New()
	for _, e := range []model.Entry{
		entry("a", 1, "2026-01-01T00:00:00Z"),
		entry("b", 1, "2026-01-03T00:00:00Z"),
		entry("c", 1, "2026-01-02T00:00:00Z"),
	} {
		id, _, _ := r.Upsert(e)
		r.Install(id, e)
	}
	r.Resort()

	var names []string
	for _, id := range r.SortOrder() {
		d, _ := r.Doc(id)
		names = append(names, d.Entry.ID)
	}
	assert.Equal(t, []string{"b", "c", "a"}, names)
}

func TestResortTiesBreakByIDDescending(t *testing.T) {
	r := New()
	for _, e := range []model.Entry{
		entry("a", 1, "2026-01-01T00:00:00Z"),
		entry("z", 1, "2026-01-01T00:00:00Z"),
		entry("m", 1, "2026-01-01T00:00:00Z"),
	} {
		id, _, _ := r.Upsert(e)
		r.Install(id, e)
	}
	r.Resort()

	var names []string
	for _, id := range r.SortOrder() {
		d, _ := r.Doc(id)
		names = append(names, d.Entry.ID)
	}
	assert.Equal(t, []string{"z", "m", "a"}, names)
}

func TestInsertSortedMaintainsOrderIncrementally(t *testing.T) {
	r := New()
	for _, e := range []model.Entry{
		entry("a", 1, "2026-01-01T00:00:00Z"),
		entry("b", 1, "2026-01-02T00:00:00Z"),
	} {
		id, _, _ := r.Upsert(e)
		r.Install(id, e)
	}
	r.Resort()

	// "a" gets a newer update and should move to the front.
	updated := entry("a", 2, "2026-01-05T00:00:00Z")
	id, _, ok := r.Upsert(updated)
	require.True(t, ok)
	r.Install(id, updated)
	r.InsertSorted(id)

	var names []string
	for _, docID := range r.SortOrder() {
		d, _ := r.Doc(docID)
		names = append(names, d.Entry.ID)
	}
	assert.Equal(t, []string{"a", "b"}, names)

	rank, ok := r.Rank(id)
	require.True(t, ok)
	assert.Equal(t, 0, rank)
}

func TestBuildCardProjectsOnlyAllowListedNonEmptyAttrs(t *testing.T) {
	e := entry("a", 1, "2026-01-01T00:00:00Z")
	e.Attrs = map[string][]string{
		"tag":        {"networking"},
		"owner":      {},
		"irrelevant": {"should-not-appear"},
	}
	r := New()
	id, _, _ := r.Upsert(e)
	doc := r.Install(id, e)

	card := BuildCard(doc)
	assert.Equal(t, []string{"networking"}, card.Attrs["tag"])
	_, hasOwner := card.Attrs["owner"]
	assert.False(t, hasOwner, "an empty attribute value list must not appear in the card")
	_, hasIrrelevant := card.Attrs["irrelevant"]
	assert.False(t, hasIrrelevant, "attribute keys outside CardKeys must not appear in the card")
}

func TestGetUnknownIDReturnsFalse(t *testing.T) {
	r := New()
	_, ok := r.Get("missing")
	assert.False(t, ok)
}
