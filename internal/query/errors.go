package query

import (
	"errors"
	"fmt"
)

// ErrConfig matches every ConfigError via errors.Is.
var ErrConfig = errors.New("query configuration error")

// ConfigError is a query that cannot be built: bad order syntax, unknown
// associations, or predicates over tables the query does not join.
type ConfigError struct {
	Op      string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Is reports whether target is ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func configErrorf(op, format string, args ...any) *ConfigError {
	return &ConfigError{Op: op, Message: fmt.Sprintf(format, args...)}
}
