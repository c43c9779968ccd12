package eldapo

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Read/BatchGet when a requested id does not
// exist, or is not visible to the requester.
var ErrNotFound = errors.New("not found")

// ErrForbidden and ErrUnauthorized are reserved for a future write path;
// the read surface never returns them. Visibility-denied reads return
// ErrNotFound instead, so denial is indistinguishable from absence.
var ErrForbidden = errors.New("forbidden")
var ErrUnauthorized = errors.New("unauthorized")

// ErrConflict is reserved for a future write path (e.g. a rev mismatch on
// a conditional write); the read surface never returns it.
var ErrConflict = errors.New("conflict")

// ErrInvalidRequest is returned for malformed request parameters other
// than the filter grammar itself (bad cursor, unknown sort mode, a cursor
// combined with sort=none). Search clamps an out-of-range limit rather
// than rejecting it.
var ErrInvalidRequest = errors.New("invalid request")

// ErrInvalidFilter wraps a filter grammar or resolution error.
//
// The original parse error can be recovered with errors.As against
// *filter.InvalidFilterError.
type ErrInvalidFilter struct {
	cause error
}

func (e *ErrInvalidFilter) Error() string {
	return fmt.Sprintf("invalid filter: %v", e.cause)
}

func (e *ErrInvalidFilter) Unwrap() error { return e.cause }

func invalidFilter(err error) error {
	return &ErrInvalidFilter{cause: err}
}

// translateFilterError normalizes a filter.Parse or validateFilter error
// into the taxonomy Search reports to callers.
func translateFilterError(err error) error {
	if err == nil {
		return nil
	}
	return invalidFilter(err)
}

// Kind classifies an error into a fixed taxonomy, for callers (notably
// httpapi) that need to map it to a status code without parsing error
// strings.
type Kind string

const (
	KindInvalidRequest Kind = "invalid_request"
	KindInvalidFilter  Kind = "invalid_filter"
	KindNotFound       Kind = "not_found"
	KindForbidden      Kind = "forbidden"
	KindUnauthorized   Kind = "unauthorized"
	KindConflict       Kind = "conflict"
	KindInternal       Kind = "internal"
)

// Classify maps err to its taxonomy Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.As(err, new(*ErrInvalidFilter)):
		return KindInvalidFilter
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}
