// Package failure holds the error kinds shared by the channel container,
// the signal kernels and the peak session.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	Unknown Kind = iota
	InputShape
	Numerical
	Convergence
	DomainReject
	UnknownKey
	Cancelled
	// WrongType is returned when a value cannot be coerced for its key
	WrongType
	IO
)

var kindNames = map[Kind]string{
	Unknown:      "unknown",
	InputShape:   "input-shape",
	Numerical:    "numerical",
	Convergence:  "convergence",
	DomainReject: "domain-reject",
	UnknownKey:   "unknown-key",
	Cancelled:    "cancelled",
	WrongType:    "kind",
	IO:           "io",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a failure with a kind, the operation that raised it and an optional cause.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is a kind sentinel of the same kind.
func (e *Error) Is(target error) bool {
	s, ok := target.(sentinel)
	return ok && Kind(s) == e.Kind
}

type sentinel Kind

func (s sentinel) Error() string { return Kind(s).String() }

// Sentinels usable with errors.Is
var (
	ErrInputShape   error = sentinel(InputShape)
	ErrNumerical    error = sentinel(Numerical)
	ErrConvergence  error = sentinel(Convergence)
	ErrDomainReject error = sentinel(DomainReject)
	ErrUnknownKey   error = sentinel(UnknownKey)
	ErrCancelled    error = sentinel(Cancelled)
	ErrWrongType    error = sentinel(WrongType)
	ErrIO           error = sentinel(IO)
)

// New returns a failure of kind k.
func New(k Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// Wrap returns a failure of kind k caused by err.
func Wrap(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}
