// Package eval implements the filter evaluator: it walks a
// filter.Node AST and returns a bitmap of matching doc ids, reordering AND
// children by estimated cardinality and maintaining a borrow/own
// distinction so postings owned by the index are never mutated in place.
package eval

import (
	"github.com/khalidsaidi/eldapo/filter"
	"github.com/khalidsaidi/eldapo/posting"
)

// Context supplies the evaluator with posting lookups and the document
// universe. Implementations are provided by the registry/posting layer.
type Context interface {
	// GetPosting returns the bitmap matching a resolved key's equality or
	// presence token, or nil if no doc has ever held it. The returned
	// bitmap is borrowed: the evaluator must clone before mutating it.
	GetPosting(node *filter.Node) *posting.Bitmap
	// Universe returns the bitmap of all live doc ids. The returned bitmap
	// is borrowed.
	Universe() *posting.Bitmap
}

// ref is a bitmap that is either borrowed from posting storage (must not be
// mutated) or owned by the evaluator (safe to mutate in place).
type ref struct {
	bitmap *posting.Bitmap
	owned  bool
}

func borrowed(b *posting.Bitmap) ref {
	if b == nil {
		return ref{bitmap: posting.New(), owned: true}
	}
	return ref{bitmap: b, owned: false}
}

func owned(b *posting.Bitmap) ref {
	return ref{bitmap: b, owned: true}
}

// own returns a bitmap the caller may mutate in place, cloning a borrowed
// bitmap first.
func (r ref) own() *posting.Bitmap {
	if r.owned {
		return r.bitmap
	}
	return r.bitmap.Clone()
}

// Evaluate walks node and returns a bitmap of matching doc ids. The result
// is always owned by the caller.
func Evaluate(node *filter.Node, ctx Context) *posting.Bitmap {
	return evalNode(node, ctx).own()
}

func evalNode(node *filter.Node, ctx Context) ref {
	switch node.Kind {
	case filter.KindEq, filter.KindPresent:
		return borrowed(ctx.GetPosting(node))
	case filter.KindAnd:
		return evalAnd(node, ctx)
	case filter.KindOr:
		return evalOr(node, ctx)
	case filter.KindNot:
		return evalNot(node, ctx)
	default:
		return owned(posting.New())
	}
}

// estimateCardinality estimates |eval(node)| without evaluating it:
// eq/present is the posting size (0 if absent); and is the minimum of
// children; or is the sum, saturated at universe size; not is universe
// minus the child's estimate.
func estimateCardinality(node *filter.Node, ctx Context) uint64 {
	switch node.Kind {
	case filter.KindEq, filter.KindPresent:
		b := ctx.GetPosting(node)
		if b == nil {
			return 0
		}
		return b.Cardinality()
	case filter.KindAnd:
		min := uint64(0)
		for i, child := range node.Children {
			c := estimateCardinality(child, ctx)
			if i == 0 || c < min {
				min = c
			}
		}
		return min
	case filter.KindOr:
		universe := ctx.Universe().Cardinality()
		sum := uint64(0)
		for _, child := range node.Children {
			sum += estimateCardinality(child, ctx)
			if sum >= universe {
				return universe
			}
		}
		return sum
	case filter.KindNot:
		universe := ctx.Universe().Cardinality()
		c := estimateCardinality(node.Child, ctx)
		if c >= universe {
			return 0
		}
		return universe - c
	default:
		return 0
	}
}

// evalAnd sorts children by ascending estimated cardinality, then
// intersects left-to-right, short-circuiting as soon as the accumulator is
// empty.
func evalAnd(node *filter.Node, ctx Context) ref {
	if len(node.Children) == 0 {
		return owned(posting.New())
	}

	children := make([]*filter.Node, len(node.Children))
	copy(children, node.Children)
	estimates := make([]uint64, len(children))
	for i, c := range children {
		estimates[i] = estimateCardinality(c, ctx)
	}
	// Simple insertion sort: AND arity is small in practice and this keeps
	// the estimate/child pairing obviously correct.
	for i := 1; i < len(children); i++ {
		for j := i; j > 0 && estimates[j] < estimates[j-1]; j-- {
			children[j], children[j-1] = children[j-1], children[j]
			estimates[j], estimates[j-1] = estimates[j-1], estimates[j]
		}
	}

	acc := evalNode(children[0], ctx).own()
	for _, child := range children[1:] {
		if acc.IsEmpty() {
			break
		}
		acc.And(evalNode(child, ctx).bitmap)
	}
	return owned(acc)
}

// evalOr unions children in place. Order is immaterial for correctness.
func evalOr(node *filter.Node, ctx Context) ref {
	if len(node.Children) == 0 {
		return owned(posting.New())
	}
	acc := evalNode(node.Children[0], ctx).own()
	for _, child := range node.Children[1:] {
		acc.Or(evalNode(child, ctx).bitmap)
	}
	return owned(acc)
}

// evalNot clones the universe and andnots the child's bitmap out of it.
func evalNot(node *filter.Node, ctx Context) ref {
	universe := ctx.Universe().Clone()
	universe.AndNot(evalNode(node.Child, ctx).bitmap)
	return owned(universe)
}
