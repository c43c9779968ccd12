// Package model holds the data model shared by the directory's packages:
// the authoritative Entry projection, attribute values, and the Requester
// identity context used for visibility checks.
package model

// Visibility classes an entry can be in.
type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityInternal   Visibility = "internal"
	VisibilityRestricted Visibility = "restricted"
)

// Entry is the projection of an authoritative directory row the core
// indexes. The durable copy lives in the external store; this is the
// shape the tailer applies.
type Entry struct {
	ID          string `json:"id"`
	Rev         int64  `json:"rev"`
	Type        string `json:"type"`
	Namespace   string `json:"namespace"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// Attrs maps an attribute key to an ordered sequence of string values.
	// Order is insignificant for matching; duplicates are allowed but
	// collapsed when building posting tokens.
	Attrs map[string][]string `json:"attrs,omitempty"`

	// Manifest and Meta are opaque structured blobs, passed through only in
	// the full view.
	Manifest any `json:"manifest,omitempty"`
	Meta     any `json:"meta,omitempty"`

	CreatedAt string `json:"created_at"` // ISO-8601 UTC, comparable lexicographically
	UpdatedAt string `json:"updated_at"` // ISO-8601 UTC, comparable lexicographically
}

// VisibilityClass returns the entry's visibility, defaulting to public when
// attrs["visibility"] is absent or empty.
func (e *Entry) VisibilityClass() Visibility {
	if vs, ok := e.Attrs["visibility"]; ok && len(vs) > 0 && vs[0] != "" {
		return Visibility(vs[0])
	}
	return VisibilityPublic
}

// AllowedGroups returns attrs["allowed_group"], or nil if absent.
func (e *Entry) AllowedGroups() []string {
	return e.Attrs["allowed_group"]
}

// Requester is the authentication context carried on every read.
type Requester struct {
	IsAuthenticated bool
	Groups          []string
	Subject         string
}

// Anonymous is the zero-value, unauthenticated requester.
func Anonymous() Requester {
	return Requester{}
}
