package authclient

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnreachable marks transport-level failures: the server never answered.
// It is never treated as an authentication failure and never clears the session.
var ErrUnreachable = errors.New("server unreachable")

// ValidationError carries the field keyed message lists of a 422 response
// or of a local precheck that failed before any request was sent
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

// APIError is any non-validation error response the server produced
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}
