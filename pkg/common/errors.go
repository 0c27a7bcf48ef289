package common

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure classes a pipeline stage may report.
type ErrorKind string

const (
	ErrCatalogUnavailable     ErrorKind = "CatalogUnavailable"
	ErrProviderUnavailable    ErrorKind = "ProviderUnavailable"
	ErrProviderTimeout        ErrorKind = "ProviderTimeout"
	ErrNoCandidateProduced    ErrorKind = "NoCandidateProduced"
	ErrSyntaxError            ErrorKind = "SyntaxError"
	ErrUnknownSchemaReference ErrorKind = "UnknownSchemaReference"
	ErrWriteNotAllowed        ErrorKind = "WriteNotAllowed"
	ErrQueryTooExpensive      ErrorKind = "QueryTooExpensive"
	ErrExecutionTimeout       ErrorKind = "ExecutionTimeout"
	ErrStoreUnavailable       ErrorKind = "StoreUnavailable"
	ErrCancelled              ErrorKind = "Cancelled"
	ErrInternal               ErrorKind = "Internal"
)

const (
	msgTranslate = "could not translate your request"
	msgUnsafe    = "the request could not be safely answered"
	msgStore     = "the data source is currently unavailable"
	msgCancelled = "the request was cancelled"
	msgInternal  = "something went wrong while answering your request"
)

// UserMessage returns the message shown to end users for the kind. It never
// includes provider or store detail.
func (k ErrorKind) UserMessage() string {
	switch k {
	case ErrProviderUnavailable, ErrProviderTimeout, ErrNoCandidateProduced:
		return msgTranslate
	case ErrSyntaxError, ErrUnknownSchemaReference, ErrWriteNotAllowed, ErrQueryTooExpensive:
		return msgUnsafe
	case ErrExecutionTimeout, ErrStoreUnavailable, ErrCatalogUnavailable:
		return msgStore
	case ErrCancelled:
		return msgCancelled
	default:
		return msgInternal
	}
}

// IsValidation reports whether the kind was produced by static query checks.
func (k ErrorKind) IsValidation() bool {
	switch k {
	case ErrSyntaxError, ErrUnknownSchemaReference, ErrWriteNotAllowed, ErrQueryTooExpensive:
		return true
	}
	return false
}

// Error is a classified failure. Op names the operation that failed, e.g.
// "translate.Translate". Err keeps the underlying cause for diagnostics and
// is never shown to end users.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError classifies err under kind. An err that is already classified
// keeps its original kind.
func NewError(kind ErrorKind, op string, err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is NewError with a formatted cause.
func Errorf(kind ErrorKind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain. Bare context
// errors map to Cancelled; anything else is Internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrCancelled
	}
	return ErrInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
