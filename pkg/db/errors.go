package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsUniqueViolation reports whether err is a unique violation. When constraint
// names are provided, at least one must match the postgres constraint name or
// appear in the driver message (sqlite reports "table.column").
func IsUniqueViolation(err error, constraints ...string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgerrcode.UniqueViolation {
			return false
		}
		if len(constraints) == 0 {
			return true
		}
		for _, name := range constraints {
			if pgErr.ConstraintName == name {
				return true
			}
		}
		return false
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	if len(constraints) == 0 {
		return true
	}
	for _, name := range constraints {
		if name != "" && strings.Contains(msg, name) {
			return true
		}
	}
	return false
}

// IsForeignKeyViolation reports whether err is a foreign key violation. When
// constraint names are provided, a postgres error must name one of them.
// sqlite does not report constraint names, so any match counts there.
func IsForeignKeyViolation(err error, constraints ...string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgerrcode.ForeignKeyViolation {
			return false
		}
		if len(constraints) == 0 {
			return true
		}
		for _, name := range constraints {
			if pgErr.ConstraintName == name {
				return true
			}
		}
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
