package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// UndefinedTableCode is the SQLSTATE PostgreSQL reports for a missing relation.
const UndefinedTableCode = "42P01"

// Annotate prefixes PostgreSQL errors with their SQLSTATE code. Other
// errors, including nil, are returned unchanged.
func Annotate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("postgres %s: %w", pgErr.Code, err)
	}
	return err
}

// HasCode reports whether err carries the given PostgreSQL SQLSTATE code.
func HasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
