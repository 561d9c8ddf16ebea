package types

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when removing a reading whose ID is not stored.
var ErrNotFound = errors.New("reading not found")

// ValidationError reports a malformed submission. It is raised before any
// persistence attempt.
type ValidationError struct {
	Field   Field
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// RepositoryError wraps a failure of the persistence backend.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
