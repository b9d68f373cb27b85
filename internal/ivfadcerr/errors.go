// Package ivfadcerr defines the engine's error taxonomy: a single
// struct carrying a code, component, operation and optional cause,
// scoped to the four kinds the engine distinguishes.
package ivfadcerr

import "fmt"

// Code identifies one of the engine's error kinds.
type Code int

const (
	// CatalogError wraps any I/O or parse fault surfaced by the
	// catalog adapter.
	CatalogError Code = iota
	// InvalidArgument marks a precondition violation such as
	// |ids| < k in clustering.
	InvalidArgument
	// MissingData marks a filter referencing nonexistent ids or
	// tokens. Most call sites absorb this locally; grouping_pq
	// escalates it instead, since a missing group id is fatal there.
	MissingData
	// InternalInvariant marks a violated structural invariant
	// detected at load time (e.g. a quantization row whose code
	// sequence length isn't M, or M not dividing D).
	InternalInvariant
)

func (c Code) String() string {
	switch c {
	case CatalogError:
		return "catalog_error"
	case InvalidArgument:
		return "invalid_argument"
	case MissingData:
		return "missing_data"
	case InternalInvariant:
		return "internal_invariant"
	default:
		return "unknown"
	}
}

// Error is the engine's single error type. Component names the
// package/operation raising it (e.g. "ivfadc_search"), Op names the
// specific step (e.g. "loadCoarseQuantizer").
type Error struct {
	Code      Code
	Component string
	Op        string
	Cause     error
}

func New(code Code, component, op string) *Error {
	return &Error{Code: code, Component: component, Op: op}
}

func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s.%s: %v", e.Code, e.Component, e.Op, e.Cause)
	}
	return fmt.Sprintf("%s: %s.%s", e.Code, e.Component, e.Op)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// CodeOf returns the Code of the first *Error found in err's Unwrap
// chain, and false if there is none, so call sites can branch on the
// error kind without type assertions everywhere.
func CodeOf(err error) (Code, bool) {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return 0, false
	}
	return e.Code, true
}

// Catalog wraps err (from a catalog adapter call) as a CatalogError.
func Catalog(component, op string, err error) *Error {
	return New(CatalogError, component, op).WithCause(err)
}

// Invalid builds an InvalidArgument error with a formatted message as
// its cause.
func Invalid(component, op, format string, args ...any) *Error {
	return New(InvalidArgument, component, op).WithCause(fmt.Errorf(format, args...))
}

// Invariant builds an InternalInvariant error with a formatted message
// as its cause.
func Invariant(component, op, format string, args ...any) *Error {
	return New(InternalInvariant, component, op).WithCause(fmt.Errorf(format, args...))
}
