package command

import (
	"errors"
	"fmt"
)

// ErrReaderClosed is returned by reads from a Reader that was closed or
// exhausted.
var ErrReaderClosed = errors.New("reader is closed")

// ErrNoFilter is returned by a bulk delete without a Where condition.
var ErrNoFilter = errors.New("bulk delete needs a Where condition")

// ConcurrencyError reports a row-versioned UPDATE or DELETE that matched
// no row: the record was changed or removed since it was read.
type ConcurrencyError struct {
	// Op is "update" or "delete".
	Op string

	// Table is the target table.
	Table string

	// Key is the primary key of the record.
	Key any

	// Version is the row version the statement expected.
	Version int64
}

// Error implements the error interface.
func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("%s of %s key=%v: row version %d is stale", e.Op, e.Table, e.Key, e.Version)
}

// IsConcurrency returns true if err is or wraps a ConcurrencyError.
func IsConcurrency(err error) bool {
	var ce *ConcurrencyError
	return errors.As(err, &ce)
}
