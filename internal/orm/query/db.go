// Package query runs generated and hand-written SQL for types described by a
// mapping schema.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/conduit-lang/fluentmap/internal/orm/mapping"
)

// Executor is the part of *sql.DB and *sql.Tx the data access layer uses
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Option configures a DB
type Option func(*DB)

// WithLogger sets the logger used for executed statements
func WithLogger(logger *zap.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// DB binds a connection to a mapping schema and a dialect
type DB struct {
	conn    Executor
	schema  *mapping.Schema
	dialect Dialect
	logger  *zap.Logger
}

// New creates a DB. A nil dialect means Postgres.
func New(conn Executor, schema *mapping.Schema, dialect Dialect, opts ...Option) *DB {
	if dialect == nil {
		dialect = Postgres
	}
	db := &DB{
		conn:    conn,
		schema:  schema,
		dialect: dialect,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Schema returns the mapping schema
func (db *DB) Schema() *mapping.Schema {
	return db.schema
}

// Dialect returns the SQL dialect
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// WithTransaction runs fn against a DB bound to a new transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (db *DB) WithTransaction(ctx context.Context, fn func(tx *DB) error) error {
	beginner, ok := db.conn.(interface {
		BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	})
	if !ok {
		return fmt.Errorf("connection %T cannot begin transactions", db.conn)
	}

	tx, err := beginner.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txDB := &DB{conn: tx, schema: db.schema, dialect: db.dialect, logger: db.logger}
	if err := fn(txDB); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Exec runs a hand-written command and returns the affected row count
func (db *DB) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	db.logger.Debug("exec", zap.String("sql", query), zap.Int("args", len(args)))
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute command: %w", ConvertDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// Scalar runs a hand-written query and returns the first column of its first row
func (db *DB) Scalar(ctx context.Context, query string, args ...interface{}) (interface{}, error) {
	db.logger.Debug("scalar", zap.String("sql", query), zap.Int("args", len(args)))
	var v interface{}
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		return nil, fmt.Errorf("failed to query scalar: %w", ConvertDBError(err))
	}
	return v, nil
}

// Query runs a hand-written query and materializes every row as a T.
// Columns are matched to members by column name; SqlIgnore members are set
// when the query returns them, MapIgnore members never are.
func Query[T any](ctx context.Context, db *DB, query string, args ...interface{}) ([]T, error) {
	om, err := mapping.MapperOf[T](db.schema)
	if err != nil {
		return nil, err
	}
	return queryInto[T](ctx, db, om, query, args)
}

// QueryRow is Query for a single row. It returns ErrNotFound when no row matches.
func QueryRow[T any](ctx context.Context, db *DB, query string, args ...interface{}) (*T, error) {
	rows, err := Query[T](ctx, db, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func queryInto[T any](ctx context.Context, db *DB, om *mapping.ObjectMapper, query string, args []interface{}) ([]T, error) {
	db.logger.Debug("query", zap.String("sql", query), zap.Int("args", len(args)), zap.String("type", om.TypeName))
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", ConvertDBError(err))
	}
	defer rows.Close()

	results, err := scanRows[T](rows, om)
	if err != nil {
		return nil, fmt.Errorf("failed to scan query results: %w", ConvertDBError(err))
	}
	return results, nil
}

// scanRows materializes every row into a new T
func scanRows[T any](rows *sql.Rows, om *mapping.ObjectMapper) ([]T, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := make([]T, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		var record T
		if err := om.Assign(reflect.ValueOf(&record), columns, values); err != nil {
			return nil, err
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
