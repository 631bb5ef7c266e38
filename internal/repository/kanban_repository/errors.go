package kanban_repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrBoardNotFound    = errors.New("board not found")
	ErrColumnNotFound   = errors.New("column not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrProjectNotFound  = errors.New("project not found")
	ErrNoActiveColumn   = errors.New("no active column on board")

	// ErrConflict marks a transaction that lost a row-level race and can
	// be retried as a whole.
	ErrConflict = errors.New("concurrent update conflict")
)

// retryable reports whether a Postgres error is a serialization failure,
// a deadlock, or a unique-position collision. All three mean the whole
// transaction should be retried.
func retryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", "40P01", "23505":
		return true
	}
	return false
}

func foreignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
