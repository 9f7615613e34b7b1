package query

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Common data access errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrUniqueViolation is returned when a unique constraint is violated
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrCheckViolation is returned when a check constraint is violated
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint is violated
	ErrNotNullViolation = errors.New("not null constraint violation")

	// ErrFieldNotFound is returned when a member has no column
	ErrFieldNotFound = errors.New("field not found")

	// ErrIgnoredField is returned when generated SQL would use an ignored member
	ErrIgnoredField = errors.New("field is ignored by the mapping")

	// ErrNoPrimaryKey is returned when a keyed operation runs on a type without a primary key
	ErrNoPrimaryKey = errors.New("type has no primary key")

	// ErrKeyCount is returned when the number of key values does not match the primary key
	ErrKeyCount = errors.New("wrong number of key values")

	// ErrNoColumns is returned when a generated command would have no columns
	ErrNoColumns = errors.New("no columns to write")
)

// SQLite extended result codes for constraint failures
const (
	sqliteConstraintCheck      = 275
	sqliteConstraintForeignKey = 787
	sqliteConstraintNotNull    = 1299
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// ConvertDBError converts driver specific errors to data access errors
func ConvertDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	// PostgreSQL (pgx)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.Detail)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrForeignKeyViolation, pgErr.Detail)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s", ErrCheckViolation, pgErr.Detail)
		case "23502": // not_null_violation
			return fmt.Errorf("%w: column %s", ErrNotNullViolation, pgErr.ColumnName)
		}
		return err
	}

	// SQLite drivers expose the extended result code
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() {
		case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
			return fmt.Errorf("%w: %s", ErrUniqueViolation, err.Error())
		case sqliteConstraintForeignKey:
			return fmt.Errorf("%w: %s", ErrForeignKeyViolation, err.Error())
		case sqliteConstraintCheck:
			return fmt.Errorf("%w: %s", ErrCheckViolation, err.Error())
		case sqliteConstraintNotNull:
			return fmt.Errorf("%w: %s", ErrNotNullViolation, err.Error())
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %s", ErrUniqueViolation, msg)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %s", ErrForeignKeyViolation, msg)
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return fmt.Errorf("%w: %s", ErrNotNullViolation, msg)
	}

	return err
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUniqueViolation returns true if the error is ErrUniqueViolation
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

// IsForeignKeyViolation returns true if the error is ErrForeignKeyViolation
func IsForeignKeyViolation(err error) bool {
	return errors.Is(err, ErrForeignKeyViolation)
}

// IsIgnoredField returns true if the error is ErrIgnoredField
func IsIgnoredField(err error) bool {
	return errors.Is(err, ErrIgnoredField)
}
