package marshal

import (
	"errors"
	"fmt"
)

// LengthError reports a string longer than its column allows. Preview
// holds the first Limit characters of the rejected value.
type LengthError struct {
	Field   string
	Limit   int
	Length  int
	Preview string
}

// Error implements the error interface.
func (e *LengthError) Error() string {
	return fmt.Sprintf("value of %s is %d characters, limit is %d: %q", e.Field, e.Length, e.Limit, e.Preview)
}

// IsLengthError returns true if err is or wraps a LengthError.
func IsLengthError(err error) bool {
	var le *LengthError
	return errors.As(err, &le)
}

func newLengthError(field string, limit int, runes []rune) *LengthError {
	return &LengthError{
		Field:   field,
		Limit:   limit,
		Length:  len(runes),
		Preview: string(runes[:limit]) + "...",
	}
}
