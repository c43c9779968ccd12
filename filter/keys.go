package filter

import "strings"

// ResolvedKey is the output of ResolveKey: either a top-level field or an
// attribute key.
type ResolvedKey struct {
	Scope string // "top" or "attr"
	Field string // when Scope == "top": one of id,type,name,namespace,version,rev
	Key   string // when Scope == "attr": the attribute key
}

var topLevelFields = map[string]bool{
	"id": true, "type": true, "name": true,
	"namespace": true, "version": true, "rev": true,
}

const attrsPrefix = "attrs."

// ResolveKey classifies a raw filter key as a top-level field or an
// attribute key, applying three ordered rules. Stripping the "attrs."
// prefix can leave an empty Key (rawKey == "attrs."); callers that care
// about a well-formed attribute key must check for that themselves —
// ResolveKey itself never rejects a key, only classifies it.
func ResolveKey(rawKey string) ResolvedKey {
	// Rule 1: "attrs." prefix strips to an attribute key.
	if strings.HasPrefix(rawKey, attrsPrefix) {
		rest := rawKey[len(attrsPrefix):]
		return ResolvedKey{Scope: "attr", Key: rest}
	}

	// Rule 2: one of the six top-level field names.
	if topLevelFields[rawKey] {
		return ResolvedKey{Scope: "top", Field: rawKey}
	}

	// Rule 3: shorthand attribute key.
	return ResolvedKey{Scope: "attr", Key: rawKey}
}
