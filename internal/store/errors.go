package store

import (
	"errors"
	"fmt"

	"github.com/roach88/shelf/internal/attr"
)

// ErrNotFound matches every NotFoundError via errors.Is.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateID is returned when a record would take an identifier that
// another row of the same table already holds.
var ErrDuplicateID = errors.New("duplicate record id")

// ErrMissingID is returned by operations that need the record's id when
// the record has none.
var ErrMissingID = errors.New("record has no id")

// NotFoundError reports a lookup of an id that is not in the table.
//
// It is a normal, recoverable condition rather than a programming error.
type NotFoundError struct {
	Table string
	ID    attr.Value
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no record with id %s", e.Table, attr.Format(e.ID))
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
