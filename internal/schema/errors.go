package schema

import (
	"errors"
	"fmt"
	"strings"
)

// StructuralError represents a defect in a record type's declared shape.
//
// Structural errors include:
//   - Missing primary key: no field tagged pk or named ID
//   - Duplicate primary key: more than one field tagged pk
//   - Cycle: an inline or eager path re-enters the same field position
//   - Unknown index field: an index marker names a field that does not exist
//   - Invalid field or tag: unsupported type or malformed annotation
//
// They are raised while building a schema or a plan and are never
// recoverable.
type StructuralError struct {
	// Code identifies the error category.
	Code StructuralErrorCode

	// Type is the record type the error was found in.
	Type string

	// Path is the dotted field path, when the error concerns a field.
	Path string

	// Message is a human-readable description.
	Message string
}

// StructuralErrorCode categorizes structural errors.
type StructuralErrorCode string

const (
	ErrCodeMissingPrimaryKey   StructuralErrorCode = "MISSING_PRIMARY_KEY"
	ErrCodeDuplicatePrimaryKey StructuralErrorCode = "DUPLICATE_PRIMARY_KEY"
	ErrCodeCycle               StructuralErrorCode = "CYCLE"
	ErrCodeUnknownIndexField   StructuralErrorCode = "UNKNOWN_INDEX_FIELD"
	ErrCodeInvalidField        StructuralErrorCode = "INVALID_FIELD"
	ErrCodeInvalidTag          StructuralErrorCode = "INVALID_TAG"
)

// Error implements the error interface.
func (e *StructuralError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (type=%s, field=%s)", e.Code, e.Message, e.Type, e.Path)
	}
	return fmt.Sprintf("%s: %s (type=%s)", e.Code, e.Message, e.Type)
}

// IsStructural returns true if err is or wraps a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// HasCode returns true if err is or wraps a StructuralError with code.
func HasCode(err error, code StructuralErrorCode) bool {
	var se *StructuralError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// NewCycleError creates a StructuralError for a path that re-enters a
// field position. path lists the field names from the root.
func NewCycleError(typeName string, path []string) *StructuralError {
	return &StructuralError{
		Code:    ErrCodeCycle,
		Type:    typeName,
		Path:    strings.Join(path, "."),
		Message: "inline or eager path re-enters the same field",
	}
}

func structural(code StructuralErrorCode, typeName, path, format string, args ...any) *StructuralError {
	return &StructuralError{
		Code:    code,
		Type:    typeName,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	}
}
