package engine

import (
	"errors"
	"fmt"
)

// Kind classifies user-facing engine failures. Infrastructure errors
// are not wrapped in *Error and surface opaquely to callers.
type Kind string

const (
	KindDomain          Kind = "domain"
	KindNotFound        Kind = "not_found"
	KindConflictingTurn Kind = "conflicting_turn"
)

// Error is a rule violation or missing reference. It never indicates a
// partially applied command; commands run inside one transaction.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func domainErrorf(format string, args ...any) error {
	return &Error{Kind: KindDomain, Message: fmt.Sprintf(format, args...)}
}

func notFoundErrorf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflictingTurnErrorf(format string, args ...any) error {
	return &Error{Kind: KindConflictingTurn, Message: fmt.Sprintf(format, args...)}
}

// IsDomain reports whether err is any user-facing engine error.
func IsDomain(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// IsNotFound reports whether err refers to a missing entity.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}
