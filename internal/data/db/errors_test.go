package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestMapErrorNil(t *testing.T) {
	if got := MapError("op", nil); got != nil {
		t.Fatalf("MapError(nil) = %v, want nil", got)
	}
}

func TestMapErrorRecordNotFound(t *testing.T) {
	err := MapError("ticket.GetByID", fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMapErrorPgCodes(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{"23505", ErrConflict},
		{"23503", ErrValidation},
		{"23514", ErrValidation},
		{"40001", ErrRetryable},
		{"40P01", ErrRetryable},
		{"55P03", ErrRetryable},
	}
	for _, tc := range cases {
		err := MapError("op", &pgconn.PgError{Code: tc.code})
		if !errors.Is(err, tc.want) {
			t.Fatalf("code %s: expected %v, got %v", tc.code, tc.want, err)
		}
	}
}

func TestMapErrorMessageFallbacks(t *testing.T) {
	cases := []struct {
		msg  string
		want error
	}{
		{"ERROR: duplicate key value violates unique constraint", ErrConflict},
		{"relation already exists", ErrConflict},
		{"deadlock detected", ErrRetryable},
		{"could not serialize access", ErrRetryable},
		{"serialization failure", ErrRetryable},
		{"dial tcp: i/o timeout", ErrRetryable},
	}
	for _, tc := range cases {
		err := MapError("op", errors.New(tc.msg))
		if !errors.Is(err, tc.want) {
			t.Fatalf("msg %q: expected %v, got %v", tc.msg, tc.want, err)
		}
	}
}

func TestMapErrorAlreadyMappedPassthrough(t *testing.T) {
	orig := ValidationError("rating must be between 1 and 5")
	if got := MapError("op", orig); got != orig {
		t.Fatalf("expected passthrough, got %v", got)
	}
}

func TestMapErrorUnknownStaysWrapped(t *testing.T) {
	orig := errors.New("something odd")
	err := MapError("feedback.Create", orig)
	if !errors.Is(err, orig) {
		t.Fatalf("expected original error in chain, got %v", err)
	}
	for _, sentinel := range []error{ErrNotFound, ErrConflict, ErrValidation, ErrRetryable} {
		if errors.Is(err, sentinel) {
			t.Fatalf("unknown error must not map to %v", sentinel)
		}
	}
}
