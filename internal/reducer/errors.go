package reducer

import (
	"errors"
	"fmt"
)

// Kind classifies a reduction failure.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindDecode
	KindEncode
	KindInvalidArgument
)

// String returns the lower-case name used in log fields and tool results.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindDecode:
		return "decode"
	case KindEncode:
		return "encode"
	case KindInvalidArgument:
		return "invalid_argument"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is. Each matches every *Error of the same Kind.
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrDecode          = &Error{Kind: KindDecode}
	ErrEncode          = &Error{Kind: KindEncode}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
)

// Error is a tagged reduction failure.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindNotFound:
		msg = "file not found"
	case KindDecode:
		msg = "failed to decode image"
	case KindEncode:
		msg = "failed to write image"
	case KindInvalidArgument:
		msg = "invalid argument"
	default:
		msg = "reduction failed"
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}
