package repository

import (
	"errors"
	"strings"

	"oficina/internal/apierror"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SQLSTATE codes that mean "run the whole transaction again".
const (
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"

	// statement_timeout; also a cancelled query. Not worth a retry inside
	// the request, but the caller may try again.
	pgQueryCanceled = "57014"
)

// IsRetryable reports whether err is a transient lock conflict.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgDeadlockDetected, pgSerializationFailure, pgLockNotAvailable:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

// IsTransient reports whether err is a lock conflict or a timeout: the
// request failed because of load, not because of its input.
func IsTransient(err error) bool {
	if IsRetryable(err) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgQueryCanceled
}

// Classify turns transient database failures into apierror.ErrConcurrency.
// Domain errors and anything already classified pass through.
func Classify(err error) error {
	if err == nil || apierror.KindOf(err) != apierror.KindInternal || !IsTransient(err) {
		return err
	}
	return apierror.ErrConcurrency.Wrap(err)
}

// IsUniqueViolation reports whether err came from a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// notFound translates gorm.ErrRecordNotFound into the domain sentinel.
func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
