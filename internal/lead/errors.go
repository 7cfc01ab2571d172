package lead

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so the HTTP layer can pick a status code without
// inspecting messages.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	KindValidation
	KindExternal
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindExternal:
		return "external"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is the tagged error returned by the lead pipeline.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Msg
	case e.Msg == "":
		return e.Err.Error()
	default:
		return e.Msg + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError reports bad or missing input.
func ValidationError(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// ExternalError reports a failed call to the analysis API.
func ExternalError(op string, err error, format string, args ...any) *Error {
	return &Error{Kind: KindExternal, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// StorageError reports a persistence failure.
func StorageError(op string, err error, format string, args ...any) *Error {
	return &Error{Kind: KindStorage, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
