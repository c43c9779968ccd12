package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khalidsaidi/eldapo/core"
	"github.com/khalidsaidi/eldapo/filter"
	"github.com/khalidsaidi/eldapo/posting"
)

// fakeContext is a minimal eval.Context backed by plain token->bitmap and
// universe maps, letting tests build scenarios without the registry or
// posting.Store machinery.
type fakeContext struct {
	postings map[string]*posting.Bitmap
	universe *posting.Bitmap
}

func newFakeContext(universe *posting.Bitmap) *fakeContext {
	return &fakeContext{postings: make(map[string]*posting.Bitmap), universe: universe}
}

func (c *fakeContext) set(key, value string, ids ...core.DocID) {
	b := posting.New()
	for _, id := range ids {
		b.Add(id)
	}
	c.postings[key+"="+value] = b
}

func (c *fakeContext) GetPosting(node *filter.Node) *posting.Bitmap {
	if node.Kind == filter.KindPresent {
		return c.postings[node.Key+"=*"]
	}
	return c.postings[node.Key+"="+node.Value]
}

func (c *fakeContext) Universe() *posting.Bitmap { return c.universe }

func eqNode(key, value string) *filter.Node {
	return &filter.Node{Kind: filter.KindEq, Key: key, Value: value}
}

func presentNode(key string) *filter.Node {
	return &filter.Node{Kind: filter.KindPresent, Key: key}
}

func TestEvaluateEq(t *testing.T) {
	ctx := newFakeContext(posting.FromDocIDs(1, 2, 3))
	ctx.set("type", "plugin", 1, 2)

	got := Evaluate(eqNode("type", "plugin"), ctx)
	assert.ElementsMatch(t, []uint32{1, 2}, toUint32(got))
}

func TestEvaluateEqUnknownTokenIsEmpty(t *testing.T) {
	ctx := newFakeContext(posting.FromDocIDs(1, 2))
	got := Evaluate(eqNode("type", "missing"), ctx)
	assert.True(t, got.IsEmpty())
}

func TestEvaluateAndIntersects(t *testing.T) {
	ctx := newFakeContext(posting.FromDocIDs(1, 2, 3, 4))
	ctx.set("type", "plugin", 1, 2, 3)
	ctx.set("env", "prod", 2, 3, 4)

	node := &filter.Node{Kind: filter.KindAnd, Children: []*filter.Node{
		eqNode("type", "plugin"), eqNode("env", "prod"),
	}}
	got := Evaluate(node, ctx)
	assert.ElementsMatch(t, []uint32{2, 3}, toUint32(got))
}

func TestEvaluateAndDoesNotMutatePostingStorage(t *testing.T) {
	ctx := newFakeContext(posting.FromDocIDs(1, 2, 3))
	ctx.set("type", "plugin", 1, 2)
	ctx.set("env", "prod", 2, 3)

	before := ctx.postings["type=plugin"].Cardinality()
	_ = Evaluate(&filter.Node{Kind: filter.KindAnd, Children: []*filter.Node{
		eqNode("type", "plugin"), eqNode("env", "prod"),
	}}, ctx)
	assert.Equal(t, before, ctx.postings["type=plugin"].Cardinality())
}

func TestEvaluateOrUnions(t *testing.T) {
	ctx := newFakeContext(posting.FromDocIDs(1, 2, 3, 4))
	ctx.set("type", "plugin", 1, 2)
	ctx.set("type", "mcp", 3)

	node := &filter.Node{Kind: filter.KindOr, Children: []*filter.Node{
		eqNode("type", "plugin"), eqNode("type", "mcp"),
	}}
	got := Evaluate(node, ctx)
	assert.ElementsMatch(t, []uint32{1, 2, 3}, toUint32(got))
}

func TestEvaluateNotComplementsUniverse(t *testing.T) {
	ctx := newFakeContext(posting.FromDocIDs(1, 2, 3, 4))
	ctx.set("type", "plugin", 1, 2)

	node := &filter.Node{Kind: filter.KindNot, Child: eqNode("type", "plugin")}
	got := Evaluate(node, ctx)
	assert.ElementsMatch(t, []uint32{3, 4}, toUint32(got))
}

func TestEvaluateNotDoesNotMutateUniverse(t *testing.T) {
	universe := posting.FromDocIDs(1, 2, 3)
	ctx := newFakeContext(universe)
	ctx.set("type", "plugin", 1)

	_ = Evaluate(&filter.Node{Kind: filter.KindNot, Child: eqNode("type", "plugin")}, ctx)
	assert.Equal(t, uint64(3), universe.Cardinality())
}

func TestEvaluatePresence(t *testing.T) {
	ctx := newFakeContext(posting.FromDocIDs(1, 2, 3))
	ctx.postings["tag=*"] = posting.FromDocIDs(1, 3)

	got := Evaluate(presentNode("tag"), ctx)
	assert.ElementsMatch(t, []uint32{1, 3}, toUint32(got))
}

func TestEvaluateAndShortCircuitsOnEmptyAccumulator(t *testing.T) {
	ctx := newFakeContext(posting.FromDocIDs(1, 2, 3))
	ctx.set("type", "nonexistent") // empty posting
	ctx.set("env", "prod", 1, 2, 3)

	node := &filter.Node{Kind: filter.KindAnd, Children: []*filter.Node{
		eqNode("env", "prod"), eqNode("type", "nonexistent"),
	}}
	got := Evaluate(node, ctx)
	assert.True(t, got.IsEmpty())
}

func toUint32(b *posting.Bitmap) []uint32 {
	var out []uint32
	for id := range b.Iterator() {
		out = append(out, uint32(id))
	}
	return out
}

func TestMain_NodeFieldsSanity(t *testing.T) {
	// Guards against a Node field rename silently breaking every helper
	// above: Kind/Key/Value/Child/Children must exist with these names.
	n := eqNode("k", "v")
	require.Equal(t, filter.KindEq, n.Kind)
	require.Equal(t, "k", n.Key)
	require.Equal(t, "v", n.Value)
}
