package mockdb

import (
	"context"
	"database/sql/driver"
	"io"
	"reflect"
)

type connector struct {
	db *DB
}

func (c *connector) Connect(context.Context) (driver.Conn, error) {
	return &conn{db: c.db}, nil
}

func (c *connector) Driver() driver.Driver {
	return mockDriver{db: c.db}
}

type mockDriver struct {
	db *DB
}

func (d mockDriver) Open(string) (driver.Conn, error) {
	return &conn{db: d.db}, nil
}

type conn struct {
	db *DB
}

var (
	_ driver.Conn           = (*conn)(nil)
	_ driver.ExecerContext  = (*conn)(nil)
	_ driver.QueryerContext = (*conn)(nil)
	_ driver.ConnBeginTx    = (*conn)(nil)
)

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return &stmt{conn: c, query: query}, nil
}

func (c *conn) Close() error { return nil }

func (c *conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *conn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return tx{}, nil
}

func (c *conn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	cmd, err := c.db.dispatch(query, namedParameters(args), KindNonQuery)
	if err != nil {
		return nil, err
	}
	return driver.RowsAffected(cmd.NonQuery), nil
}

func (c *conn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	cmd, err := c.db.dispatch(query, namedParameters(args), KindReader, KindScalar)
	if err != nil {
		return nil, err
	}

	if cmd.Kind == KindScalar {
		return &rows{names: []string{"Scalar"}, values: [][]interface{}{{cmd.Scalar}}}, nil
	}

	r := &rows{names: cmd.Reader.Names, values: cmd.Reader.Values}
	if len(cmd.Reader.Types) > 0 {
		return &typedRows{rows: r, types: cmd.Reader.Types}, nil
	}
	return r, nil
}

func namedParameters(args []driver.NamedValue) []Parameter {
	params := make([]Parameter, 0, len(args))
	for _, arg := range args {
		params = append(params, Parameter{Name: arg.Name, Ordinal: arg.Ordinal, Value: arg.Value})
	}
	return params
}

type stmt struct {
	conn  *conn
	query string
}

func (s *stmt) Close() error  { return nil }
func (s *stmt) NumInput() int { return -1 }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), toNamed(args))
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), toNamed(args))
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.query, args)
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.query, args)
}

func toNamed(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}

type tx struct{}

func (tx) Commit() error   { return nil }
func (tx) Rollback() error { return nil }

type rows struct {
	names  []string
	values [][]interface{}
	pos    int
}

func (r *rows) Columns() []string {
	return r.names
}

func (r *rows) Close() error { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.pos >= len(r.values) {
		return io.EOF
	}
	row := r.values[r.pos]
	r.pos++

	for i := range dest {
		if i >= len(row) {
			dest[i] = nil
			continue
		}
		v, err := driver.DefaultParameterConverter.ConvertValue(row[i])
		if err != nil {
			return err
		}
		dest[i] = v
	}
	return nil
}

// typedRows reports scan types for row sets scripted WithTypes
type typedRows struct {
	*rows
	types []reflect.Type
}

func (r *typedRows) ColumnTypeScanType(index int) reflect.Type {
	if index < len(r.types) && r.types[index] != nil {
		return r.types[index]
	}
	return reflect.TypeOf((*interface{})(nil)).Elem()
}
