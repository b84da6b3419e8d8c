package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrQuizNotFound indicates the quiz does not exist or is not published.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound indicates no attempt exists for a (quiz, user) pair.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrUserNotFound indicates the user mirror has no record for an id.
	ErrUserNotFound = errors.New("user not found")
	// ErrQuizNotStarted is returned before a quiz's scheduled start.
	ErrQuizNotStarted = errors.New("quiz has not started yet")
	// ErrQuizExpired is returned after a quiz's scheduled end.
	ErrQuizExpired = errors.New("quiz has expired")
	// ErrAlreadyCompleted is returned when the user already has a completed attempt.
	ErrAlreadyCompleted = errors.New("quiz already completed")
	// ErrForbidden is returned when a non-administrator calls an admin operation.
	ErrForbidden = errors.New("admin access required")
)

// FieldError describes one invalid field of a quiz draft.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// ValidationErrors aggregates field-level problems so callers can surface
// them field by field.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return "invalid quiz: " + strings.Join(msgs, "; ")
}

func (e *ValidationErrors) add(field, format string, args ...any) {
	*e = append(*e, FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
}
