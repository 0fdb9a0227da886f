package database

import (
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrUserAlreadyExist = errors.New("user already exist")
var ErrUserNotExist = errors.New("user not exist")
var ErrTaskAlreadyExist = errors.New("user already has task")
var ErrTaskNotExist = errors.New("task not exist")
var ErrBadgeAlreadyCollected = errors.New("user has already collected this badge")

// ErrUserOrBadgeNotExist is returned when a badge insert breaks either foreign
// key; the store does not tell the two apart.
var ErrUserOrBadgeNotExist = errors.New("username or badge id not exist")

// postgres error codes
const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

// IsNotFound reports whether err means the addressed user, task or badge is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotExist) ||
		errors.Is(err, ErrTaskNotExist) ||
		errors.Is(err, ErrUserOrBadgeNotExist)
}

// IsConflict reports whether err is a duplicate of an existing record.
func IsConflict(err error) bool {
	return errors.Is(err, ErrUserAlreadyExist) ||
		errors.Is(err, ErrTaskAlreadyExist) ||
		errors.Is(err, ErrBadgeAlreadyCollected)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
