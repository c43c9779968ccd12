package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cursor identifies a position in the (updated_at desc, id desc) sort order:
// the next page starts strictly after this (updated_at, id) pair.
type Cursor struct {
	UpdatedAt string `json:"updated_at"`
	ID        string `json:"id"`
}

// Encode renders the cursor as an opaque base64url string.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a cursor string produced by Encode. A malformed
// cursor is reported as an error the caller should surface as
// invalid_request.
func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor: %w", err)
	}
	return c, nil
}

// after reports whether (updatedAt, id) sorts strictly after the cursor's
// position in descending (updated_at, id) order — i.e. it is eligible for
// the next page.
func (c Cursor) after(updatedAt, id string) bool {
	if updatedAt != c.UpdatedAt {
		return updatedAt < c.UpdatedAt
	}
	return id < c.ID
}
