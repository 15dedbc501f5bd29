package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput marks malformed ids, missing fields and bad enum values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized marks a missing or mismatched caller identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks an authenticated caller acting on a resource it does not own.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict marks a request that is well formed but violates a domain rule.
	ErrConflict = errors.New("conflict")
)

// Error carries a client-facing message together with its classification.
// errors.Is(err, domain.ErrNotFound) matches an *Error whose Kind is ErrNotFound.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

func NotFound(msg string) error     { return &Error{Kind: ErrNotFound, Message: msg} }
func InvalidInput(msg string) error { return &Error{Kind: ErrInvalidInput, Message: msg} }
func Unauthorized(msg string) error { return &Error{Kind: ErrUnauthorized, Message: msg} }
func Forbidden(msg string) error    { return &Error{Kind: ErrForbidden, Message: msg} }
func Conflict(msg string) error     { return &Error{Kind: ErrConflict, Message: msg} }
func AlreadyExists(msg string) error {
	return &Error{Kind: ErrAlreadyExists, Message: msg}
}

// Message returns the client-facing text of err when it is a *Error.
func Message(err error) (string, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Error(), true
	}
	return "", false
}
