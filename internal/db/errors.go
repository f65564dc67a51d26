package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes the repositories react to.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// pgError extracts the SQLSTATE and constraint name from either driver's
// error type.
func pgError(err error) (code, constraint string, ok bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, true
	}

	return "", "", false
}

// UniqueViolation reports whether err is a unique-constraint violation and
// names the constraint.
func UniqueViolation(err error) (string, bool) {
	code, constraint, ok := pgError(err)
	if !ok || code != codeUniqueViolation {
		return "", false
	}
	return constraint, true
}

func ForeignKeyViolation(err error) bool {
	code, _, ok := pgError(err)
	return ok && code == codeForeignKeyViolation
}

func CheckViolation(err error) (string, bool) {
	code, constraint, ok := pgError(err)
	if !ok || code != codeCheckViolation {
		return "", false
	}
	return constraint, true
}
