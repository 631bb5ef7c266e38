package kanban_services

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied means the resolved capability set does not allow
// the attempted operation.
var ErrPermissionDenied = errors.New("permission denied")

// ValidationError reports malformed or missing input. It is always
// returned before any mutation happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErr(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
