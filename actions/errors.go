package actions

import (
	"errors"
	"strings"
)

var (
	// ErrUnauthorized indicates the action needs an authenticated actor.
	ErrUnauthorized = errors.New("actions: authentication required")

	// ErrForbidden indicates the actor may not modify the target.
	ErrForbidden = errors.New("actions: forbidden")

	// ErrNotFound indicates the target record does not exist.
	ErrNotFound = errors.New("actions: not found")

	// ErrSelfDemotion indicates an admin tried to drop their own admin role.
	ErrSelfDemotion = errors.New("actions: cannot remove your own admin role")

	// ErrInvalidPassword indicates the current password did not match.
	ErrInvalidPassword = errors.New("actions: current password is incorrect")

	// ErrEmailTaken indicates another account already uses the email.
	ErrEmailTaken = errors.New("actions: email already in use")

	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("actions: validation failed")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of an input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }
