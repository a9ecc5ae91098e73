// Package otserr defines the failure taxonomy shared by the key and seed
// packages. Concrete errors wrap exactly one of the kind sentinels so callers
// can classify them with errors.Is.
package otserr

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrDomain          = errors.New("domain error")
	ErrNotImplemented  = errors.New("not implemented")
)

// Kind is the coarse classification of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindNotFound
	KindDomain
	KindNotImplemented
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindDomain:
		return "domain_error"
	case KindNotImplemented:
		return "not_implemented"
	default:
		return "unknown"
	}
}

// KindOf reports the taxonomy kind of err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDomain):
		return KindDomain
	case errors.Is(err, ErrNotImplemented):
		return KindNotImplemented
	default:
		return KindUnknown
	}
}

// New returns a sentinel error with the given message classified under kind.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Invalid formats an InvalidArgument failure.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Domain formats a DomainError failure.
func Domain(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDomain, fmt.Sprintf(format, args...))
}
