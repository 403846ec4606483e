package analysis

import (
	"fmt"
)

// Kind classifies why an analysis could not be produced. Batch operations use
// it to skip an entity without losing the reason.
type Kind int

const (
	// KindMalformedRecord marks a trade or kline whose required numeric
	// fields could not be coerced.
	KindMalformedRecord Kind = iota + 1
	// KindInsufficientData marks an indicator given fewer observations than
	// it requires.
	KindInsufficientData
	// KindEmptyInput marks a request with no matching trades or an empty
	// book side. Callers treat it as "exclude", not as a failure.
	KindEmptyInput
)

func (k Kind) String() string {
	switch k {
	case KindMalformedRecord:
		return "malformed_record"
	case KindInsufficientData:
		return "insufficient_data"
	case KindEmptyInput:
		return "empty_input"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned per entity by the analysis core.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on a bare kind marker.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == ""
}

func errOf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Markers for errors.Is checks.
var (
	ErrMalformedRecord  = &Error{Kind: KindMalformedRecord}
	ErrInsufficientData = &Error{Kind: KindInsufficientData}
	ErrEmptyInput       = &Error{Kind: KindEmptyInput}
)
