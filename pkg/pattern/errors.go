package pattern

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicatePattern is returned when registering a pattern whose ID is
	// already taken. Duplicate registration is rejected, never overwritten.
	ErrDuplicatePattern = errors.New("duplicate pattern id")

	// ErrPatternNotFound is returned when an operation names a pattern ID
	// that is not registered.
	ErrPatternNotFound = errors.New("pattern not found")

	// ErrInvalidPattern is returned when a definition fails validation or
	// its expression does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")
)

func invalidPattern(id string, cause error) error {
	return fmt.Errorf("%w %q: %w", ErrInvalidPattern, id, cause)
}
