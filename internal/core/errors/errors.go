package errors

import (
	"errors"
	"fmt"

	"ssd/internal/engine/diag"
)

type ErrorCode string

const (
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeValidationError      ErrorCode = "VALIDATION_ERROR"
	CodeConfigError          ErrorCode = "CONFIG_ERROR"
	CodeSyntaxError          ErrorCode = "SYNTAX_ERROR"
	CodeDuplicateDeclaration ErrorCode = "DUPLICATE_DECLARATION"
	CodeRoundTrip            ErrorCode = "ROUND_TRIP_MISMATCH"
	CodeInternal             ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported         ErrorCode = "NOT_SUPPORTED"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxBackend   = "backend"
	CtxFormat    = "format"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// WrapSource wraps a failure from the parser, assembler or printer, picking
// the code from the underlying error.
func WrapSource(err error, path string) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(CtxPath, path)
		return de
	}
	code := CodeOf(err)
	msg := "cannot process source"
	switch code {
	case CodeSyntaxError:
		msg = "syntax error"
	case CodeDuplicateDeclaration:
		msg = "duplicate declaration"
	case CodeRoundTrip:
		msg = "printer and parser disagree"
	}
	return (&DomainError{Code: code, Message: msg, Err: err}).WithContext(CtxPath, path)
}

// AddContext attaches a context value, wrapping plain errors as internal.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return de
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf classifies err. Domain errors keep their code; parse and round-trip
// errors from the engine map to their own codes; anything else is internal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	var rt *diag.RoundTripError
	if errors.As(err, &rt) {
		return CodeRoundTrip
	}
	var pe *diag.ParseError
	if errors.As(err, &pe) {
		if pe.Kind == diag.KindDuplicateDeclaration {
			return CodeDuplicateDeclaration
		}
		return CodeSyntaxError
	}
	return CodeInternal
}

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
