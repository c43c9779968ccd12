package eldapo

import (
	"strconv"

	"github.com/khalidsaidi/eldapo/filter"
	"github.com/khalidsaidi/eldapo/model"
	"github.com/khalidsaidi/eldapo/posting"
)

// eqToken builds the posting token for an equality match on a resolved
// key, canonicalizing the "rev" top-level field to its decimal int64 form
// so that indexing and querying always agree on the token string.
func eqToken(resolved filter.ResolvedKey, value string) (string, error) {
	scope := posting.ScopeAttr
	key := resolved.Key
	if resolved.Scope == "top" {
		scope = posting.ScopeTop
		key = resolved.Field
		if resolved.Field == "rev" {
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return "", err
			}
			value = strconv.FormatInt(n, 10)
		}
	}
	return posting.EqToken(scope, key, value), nil
}

// presenceToken builds the posting token for a presence match on a
// resolved key.
func presenceToken(resolved filter.ResolvedKey) string {
	if resolved.Scope == "top" {
		return posting.PresenceToken(posting.ScopeTop, resolved.Field)
	}
	return posting.PresenceToken(posting.ScopeAttr, resolved.Key)
}

// tokensForEntry enumerates every eq and presence token entry should be
// indexed under: one eq+presence pair per top-level field, plus one eq
// token per distinct attribute value and one presence token per attribute
// key that has at least one value.
func tokensForEntry(e *model.Entry) []string {
	topFields := [6]struct{ field, value string }{
		{"id", e.ID},
		{"type", e.Type},
		{"name", e.Name},
		{"namespace", e.Namespace},
		{"version", e.Version},
		{"rev", strconv.FormatInt(e.Rev, 10)},
	}

	out := make([]string, 0, len(topFields)*2+len(e.Attrs)*2)
	for _, f := range topFields {
		out = append(out, posting.EqToken(posting.ScopeTop, f.field, f.value))
		out = append(out, posting.PresenceToken(posting.ScopeTop, f.field))
	}

	for key, values := range e.Attrs {
		if len(values) == 0 {
			continue
		}
		out = append(out, posting.PresenceToken(posting.ScopeAttr, key))
		seen := make(map[string]bool, len(values))
		for _, v := range values {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, posting.EqToken(posting.ScopeAttr, key, v))
		}
	}
	return out
}

// validateFilter walks node checking the semantic rules parsing alone
// can't enforce: every "rev" equality comparison must carry a valid
// base-10 int64 value, and every attribute key must be non-empty after
// resolution. A filter can parse successfully yet still fail here —
// rev=abc and (attrs.=x) both parse, but are rejected at this stage.
func validateFilter(node *filter.Node) error {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case filter.KindEq:
		resolved := filter.ResolveKey(node.Key)
		if resolved.Scope == "attr" && resolved.Key == "" {
			return &filter.InvalidFilterError{Pos: node.ValuePos, Message: "attribute key must be non-empty"}
		}
		if resolved.Scope == "top" && resolved.Field == "rev" {
			if _, err := strconv.ParseInt(node.Value, 10, 64); err != nil {
				return &filter.InvalidFilterError{Pos: node.ValuePos, Message: "rev must be an integer"}
			}
		}
		return nil
	case filter.KindPresent:
		resolved := filter.ResolveKey(node.Key)
		if resolved.Scope == "attr" && resolved.Key == "" {
			return &filter.InvalidFilterError{Pos: 0, Message: "attribute key must be non-empty"}
		}
		return nil
	case filter.KindNot:
		return validateFilter(node.Child)
	case filter.KindAnd, filter.KindOr:
		for _, child := range node.Children {
			if err := validateFilter(child); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
