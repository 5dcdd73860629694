package predicate

import (
	"errors"
	"fmt"
)

// CompileError reports an expression that cannot be translated.
type CompileError struct {
	// Code identifies the error category.
	Code CompileErrorCode

	// Path is the field path involved, when there is one.
	Path string

	// Message is a human-readable description.
	Message string

	// Err is the underlying error of a failed local evaluation.
	Err error
}

// CompileErrorCode categorizes compile errors.
type CompileErrorCode string

const (
	ErrCodeUnknownPath     CompileErrorCode = "UNKNOWN_PATH"
	ErrCodeJoinNotAllowed  CompileErrorCode = "JOIN_NOT_ALLOWED"
	ErrCodeRemoteOperand   CompileErrorCode = "REMOTE_OPERAND"
	ErrCodeTypeMismatch    CompileErrorCode = "TYPE_MISMATCH"
	ErrCodeLocalEvaluation CompileErrorCode = "LOCAL_EVALUATION"
	ErrCodeUnsupported     CompileErrorCode = "UNSUPPORTED"
)

// Error implements the error interface.
func (e *CompileError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, msg, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying evaluation error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// IsCompile returns true if err is or wraps a CompileError.
func IsCompile(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// HasCode returns true if err is or wraps a CompileError with code.
func HasCode(err error, code CompileErrorCode) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

func compileError(code CompileErrorCode, path, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    code,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	}
}
