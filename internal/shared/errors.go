package shared

import "errors"

var (
	// ErrNotFound indicates the resource does not exist within the caller's scope.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique constraint was violated.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates malformed input rejected before persistence.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates the caller may not act on the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a business-rule violation on otherwise valid input.
	ErrConflict = errors.New("conflict")
	// ErrTransient indicates a contention failure that may succeed on retry,
	// such as an exhausted integrity-race retry loop.
	ErrTransient = errors.New("transient failure")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
