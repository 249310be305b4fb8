package services

import (
	"errors"

	"github.com/yelpcamp/apiserver/internal/store"
)

var (
	// ErrNotAuthenticated is returned when an action requires an acting user.
	ErrNotAuthenticated = errors.New("authentication required")

	// ErrNotFound is returned when the target resource does not exist.
	ErrNotFound = store.ErrNotFound

	// ErrPermissionDenied is returned when the acting user neither owns the
	// target nor is an administrator.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidInput wraps validation failures. The wrapped message is safe
	// to show to the caller.
	ErrInvalidInput = errors.New("invalid input")

	ErrTokenInvalidOrExpired = errors.New("password reset token is invalid or has expired")

	// ErrUpstream is returned when the image store or geocoder fails.
	ErrUpstream = errors.New("upstream service failed")

	ErrIdentityNotFound   = errors.New("no account with that email address exists")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrConflict is returned when a username or email is already taken.
	ErrConflict = store.ErrConflict
)

// InputError carries a caller-facing validation message and matches
// ErrInvalidInput with errors.Is.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidInput(message string) error {
	return &InputError{Message: message}
}

// AsInputError turns err into an InputError carrying its text. Use it for
// errors raised while reading caller input outside the services.
func AsInputError(err error) error {
	if err == nil {
		return nil
	}
	return invalidInput(err.Error())
}
