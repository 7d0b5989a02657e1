package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// SQLSTATE codes we react to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeAdminShutdown        = "57P01"
	codeCannotConnectNow     = "57P03"
	codeQueryCanceled        = "57014"
	classConnectionException = "08"
)

// IsUniqueViolation checks if the error is a unique constraint violation.
func IsUniqueViolation(err error) bool { return hasCode(err, codeUniqueViolation) }

// IsForeignKeyViolation checks if the error is a foreign key violation.
func IsForeignKeyViolation(err error) bool { return hasCode(err, codeForeignKeyViolation) }

// IsNoRows checks if the error is pgx.ErrNoRows.
func IsNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

// constraintReviewerFK is the default name Postgres gives the
// task_submissions.reviewer_id foreign key.
const constraintReviewerFK = "task_submissions_reviewer_id_fkey"

func isReviewerViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation &&
		pgErr.ConstraintName == constraintReviewerFK
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// isTransient reports failures where retrying the whole operation may succeed.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectionClosed) || errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeAdminShutdown,
			codeCannotConnectNow, codeQueryCanceled:
			return true
		}
		return strings.HasPrefix(pgErr.Code, classConnectionException)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

// classify maps a driver error to the domain taxonomy. Domain errors pass
// through untouched.
func classify(domain, op string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case isTransient(err):
		return shared.Transient(domain, op, err)
	case IsUniqueViolation(err):
		return shared.WrapError(domain, op, shared.ErrConflict, "duplicate record", err)
	case IsForeignKeyViolation(err):
		return shared.WrapError(domain, op, shared.ErrNotFound, "referenced entity does not exist", err)
	case hasCode(err, codeCheckViolation):
		return shared.WrapError(domain, op, shared.ErrValidation, "constraint violated", err)
	}
	return fmt.Errorf("%s.%s: %w", domain, op, err)
}
