package eldapo

import (
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khalidsaidi/eldapo/model"
)

func seedEntry(id, typ, namespace, updatedAt string, attrs map[string][]string) model.Entry {
	return model.Entry{
		ID: id, Rev: 1, Type: typ, Namespace: namespace, Name: "Name " + id,
		Description: "desc " + id, Version: "1.0.0", Attrs: attrs,
		CreatedAt: updatedAt, UpdatedAt: updatedAt,
	}
}

func seqOf(entries ...model.Entry) iter.Seq2[model.Entry, error] {
	return func(yield func(model.Entry, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func TestSearchBasicAndIntersection(t *testing.T) {
	d := New()
	require.NoError(t, d.LoadSnapshot(seqOf(
		seedEntry("p1", "plugin", "core", "2026-01-01T00:00:00Z", map[string][]string{"env": {"prod"}}),
		seedEntry("p2", "plugin", "core", "2026-01-02T00:00:00Z", map[string][]string{"env": {"staging"}}),
		seedEntry("m1", "mcp", "core", "2026-01-03T00:00:00Z", map[string][]string{"env": {"prod"}}),
	)))

	res, err := d.Search(SearchRequest{Filter: "(&(type=plugin)(attrs.env=prod))"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "p1", res.Items[0].ID)
}

func TestSearchVisibilityDeny(t *testing.T) {
	d := New()
	require.NoError(t, d.LoadSnapshot(seqOf(
		seedEntry("pub", "plugin", "core", "2026-01-01T00:00:00Z", map[string][]string{"visibility": {"public"}}),
		seedEntry("restr", "plugin", "core", "2026-01-02T00:00:00Z", map[string][]string{
			"visibility": {"restricted"}, "allowed_group": {"sre"},
		}),
	)))

	res, err := d.Search(SearchRequest{Requester: model.Anonymous()})
	require.NoError(t, err)
	var ids []string
	for _, c := range res.Items {
		ids = append(ids, c.ID)
	}
	assert.Contains(t, ids, "pub")
	assert.NotContains(t, ids, "restr")

	res2, err := d.Search(SearchRequest{Requester: model.Requester{IsAuthenticated: true, Groups: []string{"sre"}}})
	require.NoError(t, err)
	ids = nil
	for _, c := range res2.Items {
		ids = append(ids, c.ID)
	}
	assert.Contains(t, ids, "restr")
}

func TestSearchCursorPagination(t *testing.T) {
	d := New()
	require.NoError(t, d.LoadSnapshot(seqOf(
		seedEntry("a", "plugin", "core", "2026-01-01T00:00:00Z", nil),
		seedEntry("b", "plugin", "core", "2026-01-02T00:00:00Z", nil),
		seedEntry("c", "plugin", "core", "2026-01-03T00:00:00Z", nil),
	)))

	page1, err := d.Search(SearchRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	assert.Equal(t, []string{"c", "b"}, []string{page1.Items[0].ID, page1.Items[1].ID})
	require.NotEmpty(t, page1.NextCursor)

	page2, err := d.Search(SearchRequest{Limit: 2, Cursor: page1.NextCursor})
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	assert.Equal(t, "a", page2.Items[0].ID)
	assert.Empty(t, page2.NextCursor)
}

func TestApplyChangeRevWinsOverStale(t *testing.T) {
	d := New()
	require.NoError(t, d.LoadSnapshot(seqOf(seedEntry("a", "plugin", "core", "2026-01-01T00:00:00Z", nil))))

	stale := seedEntry("a", "plugin", "core", "2026-01-02T00:00:00Z", nil)
	stale.Rev = 1 // same rev as the loaded entry
	applied := d.ApplyChange(stale)
	assert.False(t, applied, "a non-increasing rev must be rejected")

	newer := seedEntry("a", "plugin", "core", "2026-01-03T00:00:00Z", nil)
	newer.Rev = 2
	newer.Name = "Updated Name"
	applied = d.ApplyChange(newer)
	require.True(t, applied)

	hit, err := d.Read("a", model.Anonymous())
	require.NoError(t, err)
	assert.Equal(t, "Updated Name", hit.Entry.Name)
}

func TestSearchPresenceFilter(t *testing.T) {
	d := New()
	require.NoError(t, d.LoadSnapshot(seqOf(
		seedEntry("a", "plugin", "core", "2026-01-01T00:00:00Z", map[string][]string{"owner": {"team-x"}}),
		seedEntry("b", "plugin", "core", "2026-01-02T00:00:00Z", nil),
	)))

	res, err := d.Search(SearchRequest{Filter: "(attrs.owner=*)"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "a", res.Items[0].ID)
}

func TestSearchInvalidFilterSyntax(t *testing.T) {
	d := New()
	_, err := d.Search(SearchRequest{Filter: "(name)"})
	require.Error(t, err)
	assert.Equal(t, KindInvalidFilter, Classify(err))
}

func TestSearchInvalidFilterRevNotInteger(t *testing.T) {
	d := New()
	require.NoError(t, d.LoadSnapshot(seqOf(seedEntry("a", "plugin", "core", "2026-01-01T00:00:00Z", nil))))

	_, err := d.Search(SearchRequest{Filter: "(rev=abc)"})
	require.Error(t, err)
	assert.Equal(t, KindInvalidFilter, Classify(err))
}

func TestSearchInvalidFilterEmptyAttrKey(t *testing.T) {
	d := New()
	_, err := d.Search(SearchRequest{Filter: "(attrs.=x)"})
	require.Error(t, err)
	assert.Equal(t, KindInvalidFilter, Classify(err))
}

func TestSearchSortNoneRejectsCursor(t *testing.T) {
	d := New()
	_, err := d.Search(SearchRequest{Sort: "none", Cursor: "deadbeef"})
	require.Error(t, err)
	assert.Equal(t, KindInvalidRequest, Classify(err))
}

func TestReadUnknownIDReturnsNotFound(t *testing.T) {
	d := New()
	_, err := d.Read("missing", model.Anonymous())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBatchGetOmitsUnknownAndDeniedPreservesOrder(t *testing.T) {
	d := New()
	require.NoError(t, d.LoadSnapshot(seqOf(
		seedEntry("a", "plugin", "core", "2026-01-01T00:00:00Z", nil),
		seedEntry("b", "plugin", "core", "2026-01-02T00:00:00Z", map[string][]string{"visibility": {"restricted"}, "allowed_group": {"sre"}}),
	)))

	res := d.BatchGet([]string{"a", "missing", "b"}, model.Anonymous())
	require.Len(t, res.Items, 1)
	assert.Equal(t, "a", res.Items[0].Entry.ID)
	assert.Equal(t, 2, res.Omitted)
}

func TestStatsReflectsLoadedDocs(t *testing.T) {
	d := New()
	require.NoError(t, d.LoadSnapshot(seqOf(
		seedEntry("a", "plugin", "core", "2026-01-01T00:00:00Z", map[string][]string{"env": {"prod"}}),
	)))
	stats := d.Stats()
	assert.Equal(t, 1, stats.Docs)
	assert.Greater(t, stats.EqTokens, 0)
}
