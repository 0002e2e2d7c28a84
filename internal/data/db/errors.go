package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates the requested row does not exist (or is soft deleted).
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a uniqueness or concurrency conflict.
	ErrConflict = errors.New("record conflict")
	// ErrValidation indicates caller input validation failure.
	ErrValidation = errors.New("validation failure")
	// ErrRetryable indicates a transient failure safe to retry.
	ErrRetryable = errors.New("retryable failure")
)

// NotFoundError tags an error as a missing-record failure.
func NotFoundError(msg string) error {
	return errors.Join(ErrNotFound, errors.New(strings.TrimSpace(msg)))
}

// ConflictError tags an error as a conflict failure.
func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

// ValidationError tags an error as a validation failure.
func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

// RetryableError tags an error as a retryable failure.
func RetryableError(msg string) error {
	return errors.Join(ErrRetryable, errors.New(strings.TrimSpace(msg)))
}

func tag(op string, sentinel, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(sentinel, err))
}

// MapError normalizes driver and gorm failures onto the package sentinels so
// callers can branch with errors.Is without importing pgconn.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrRetryable):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tag(op, ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return tag(op, ErrConflict, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return tag(op, ErrRetryable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return tag(op, ErrConflict, err) // unique_violation
		case "23503", "23514":
			return tag(op, ErrValidation, err) // foreign_key/check_violation
		case "40001", "40P01", "55P03":
			return tag(op, ErrRetryable, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "already exists"):
		return tag(op, ErrConflict, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serializ"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return tag(op, ErrRetryable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
