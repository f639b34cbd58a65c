package restcache

import (
	"errors"
	"fmt"
	"strings"

	"github.com/unkn0wn-root/restcache/library"
)

var (
	// ErrNotFound is returned when a type has no link in the library.
	ErrNotFound = library.ErrNotFound
	// ErrMissingID is returned by Remove for entities without an identifier.
	ErrMissingID = errors.New("restcache: entity has no identifier")
	// ErrMalformedResponse is returned when a body is not the expected shape.
	ErrMalformedResponse = errors.New("restcache: malformed response body")
)

// PreRequestError is returned when the pre-request hook rejects an
// operation. The transport is never reached in that case.
type PreRequestError struct {
	Type  string
	Cause error
}

func (e *PreRequestError) Error() string {
	return fmt.Sprintf("restcache: pre-request hook rejected %q: %v", e.Type, e.Cause)
}

func (e *PreRequestError) Unwrap() error { return e.Cause }

// InvalidateError collects the per-scope failures of Registry.Invalidate.
type InvalidateError struct {
	Prefix string
	Scopes []string
	Errs   []error
}

func (e *InvalidateError) Error() string {
	parts := make([]string, 0, len(e.Errs))
	for i, err := range e.Errs {
		parts = append(parts, fmt.Sprintf("%s: %v", e.Scopes[i], err))
	}
	return fmt.Sprintf("invalidate %q: %d scope(s) failed: %s", e.Prefix, len(e.Errs), strings.Join(parts, "; "))
}

func (e *InvalidateError) Unwrap() []error { return e.Errs }
