package analysis

import (
	"errors"
	"fmt"
)

// Code classifies an analysis failure. Codes are stable strings so they
// can be logged, counted and asserted on without string-matching messages.
type Code string

const (
	ValidationError    Code = "VALIDATION_ERROR"
	UnsupportedInput   Code = "UNSUPPORTED_INPUT"
	EmptyInput         Code = "EMPTY_INPUT"
	InvalidOption      Code = "INVALID_OPTION"
	MergeError         Code = "MERGE_ERROR"
	GenerationError    Code = "GENERATION_ERROR"
	SerializationError Code = "SERIALIZATION_ERROR"
	ParseError         Code = "PARSE_ERROR"
)

// Error is the tagged failure type shared across the analysis pipeline.
// InputKind is set when the failure is tied to a registered input kind
// and empty otherwise. Wrapped causes unwrap through errors.Is/As.
type Error struct {
	Code      Code
	InputKind string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.InputKind != "" {
		msg = fmt.Sprintf("%s: %s", e.InputKind, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a tagged error without a cause.
func NewError(code Code, inputKind, format string, args ...any) *Error {
	return &Error{Code: code, InputKind: inputKind, Message: fmt.Sprintf(format, args...)}
}

// WrapError tags an underlying cause with a code and context message.
func WrapError(code Code, inputKind string, err error, format string, args ...any) *Error {
	return &Error{Code: code, InputKind: inputKind, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the Code from err's chain, or "" when err carries no
// tagged analysis error.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsCode reports whether err's chain carries a tagged error with the
// given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
