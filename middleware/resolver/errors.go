package resolver

import (
	"errors"
	"fmt"

	"github.com/miekg/dns"
)

// ResolveError represents a resolution failure with EDE information.
type ResolveError struct {
	Code    uint16
	Message string
	Err     error
}

func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// EDECode returns the EDE code for this error.
func (e *ResolveError) EDECode() uint16 {
	return e.Code
}

// Engine outcomes. Not-found and not-authoritative are authoritative
// negatives, the ResolveError values are server failures.
var (
	errNotFound         = errors.New("no record found")
	errNoStore          = errors.New("backing store unavailable")
	errNotAuthoritative = errors.New("name not authoritative")
	errNoData           = errors.New("no record of the requested family")

	errLoopDetected = &ResolveError{
		Code:    dns.ExtendedErrorCodeOther,
		Message: "Alias loop detected",
	}
	errMaxDepth = &ResolveError{
		Code:    dns.ExtendedErrorCodeOther,
		Message: "Alias chain too deep",
	}
)

// NewStoreError wraps a backing store failure with EDE information.
func NewStoreError(err error) *ResolveError {
	return &ResolveError{
		Code:    dns.ExtendedErrorCodeNetworkError,
		Message: "backing store error",
		Err:     err,
	}
}
