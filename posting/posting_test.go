package posting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqTokenAndPresenceTokenGrammar(t *testing.T) {
	assert.Equal(t, "top\x00k:name\x00v:router", EqToken(ScopeTop, "name", "router"))
	assert.Equal(t, "attr\x00k:tag\x00*", PresenceToken(ScopeAttr, "tag"))
}

func TestBitmapSetOps(t *testing.T) {
	and := FromDocIDs(1, 2, 3)
	and.And(FromDocIDs(2, 3, 4))
	assert.ElementsMatch(t, []uint64{2, 3}, toU64(and))

	or := FromDocIDs(1, 2, 3)
	or.Or(FromDocIDs(2, 3, 4))
	assert.ElementsMatch(t, []uint64{1, 2, 3, 4}, toU64(or))

	andNot := FromDocIDs(1, 2, 3)
	andNot.AndNot(FromDocIDs(2, 3, 4))
	assert.ElementsMatch(t, []uint64{1}, toU64(andNot))
}

func toU64(b *Bitmap) []uint64 {
	var out []uint64
	for id := range b.Iterator() {
		out = append(out, uint64(id))
	}
	return out
}

func TestStoreAddGetRemoveEvictsEmptyBitmap(t *testing.T) {
	s := NewStore()
	tok := EqToken(ScopeTop, "type", "plugin")

	s.Add(tok, 1)
	s.Add(tok, 2)
	require.NotNil(t, s.Get(tok))
	assert.Equal(t, uint64(2), s.Cardinality(tok))

	s.Remove(tok, 1)
	require.NotNil(t, s.Get(tok))
	assert.Equal(t, uint64(1), s.Cardinality(tok))

	s.Remove(tok, 2)
	assert.Nil(t, s.Get(tok), "an empty posting must be evicted from the map entirely")
}

func TestStoreRoutesPresenceAndEqToSeparateMaps(t *testing.T) {
	s := NewStore()
	eqTok := EqToken(ScopeAttr, "env", "prod")
	presTok := PresenceToken(ScopeAttr, "env")

	s.Add(eqTok, 1)
	s.Add(presTok, 1)

	eqTokens, presenceTokens, total := s.Stats()
	assert.Equal(t, 1, eqTokens)
	assert.Equal(t, 1, presenceTokens)
	assert.Equal(t, uint64(2), total)
}

func TestStoreGetUnknownTokenReturnsNil(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Get(EqToken(ScopeTop, "id", "missing")))
	assert.Equal(t, uint64(0), s.Cardinality(EqToken(ScopeTop, "id", "missing")))
}

func TestCloneIsIndependent(t *testing.T) {
	a := FromDocIDs(1, 2)
	clone := a.Clone()
	clone.Add(3)
	assert.False(t, a.Contains(3))
	assert.True(t, clone.Contains(3))
}
