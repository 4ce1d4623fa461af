package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the application translates to domain messages.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeNotNullViolation    = "23502"
	CodeCheckViolation      = "23514"
)

// PgError unwraps err to a *pgconn.PgError if it is one.
func PgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	pgErr := PgError(err)
	return pgErr != nil && pgErr.Code == CodeUniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	pgErr := PgError(err)
	return pgErr != nil && pgErr.Code == CodeForeignKeyViolation
}

// ConstraintName returns the violated constraint's name, or "" when err is
// not a constraint violation.
func ConstraintName(err error) string {
	if pgErr := PgError(err); pgErr != nil {
		return pgErr.ConstraintName
	}
	return ""
}
