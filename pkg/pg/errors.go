package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFailedToConnect          = errors.New("pg: failed to open connection")
	ErrFailedToParseConfig      = errors.New("pg: failed to parse connection config")
	ErrHealthcheckFailed        = errors.New("pg: healthcheck failed")
	ErrFailedToApplyMigrations  = errors.New("pg: failed to apply migrations")
	ErrMigrationsDirNotFound    = errors.New("pg: migrations directory not found")
	ErrMigrationPathNotProvided = errors.New("pg: migration path not provided")
)

// IsNotFound reports whether the error is pgx.ErrNoRows.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKey reports a unique constraint violation (SQLSTATE 23505).
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsForeignKeyViolation reports a referential integrity violation
// (SQLSTATE 23503).
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
