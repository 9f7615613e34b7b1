// Package mockdb is a scripted database/sql driver for tests. Each command
// executed against it takes the next scripted outcome in order and is
// recorded, text and parameters, in that same entry so tests can assert on
// the SQL a mapping produced without a real database.
//
//	db := mockdb.New().
//		NewReader("ID", "Name").NewRow(1, "a").
//		NewNonQuery()
//	conn := db.Open()
package mockdb

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// OutcomeKind is the kind of result a scripted command produces
type OutcomeKind int

const (
	// KindReader produces a row set
	KindReader OutcomeKind = iota
	// KindNonQuery produces an affected row count
	KindNonQuery
	// KindScalar produces a single value
	KindScalar
)

// String returns the string representation of the kind
func (k OutcomeKind) String() string {
	switch k {
	case KindReader:
		return "reader"
	case KindNonQuery:
		return "non-query"
	case KindScalar:
		return "scalar"
	default:
		return "unknown"
	}
}

// ReaderData is a scripted row set
type ReaderData struct {
	Names  []string
	Types  []reflect.Type
	Values [][]interface{}
}

// Parameter is one captured command parameter
type Parameter struct {
	Name    string
	Ordinal int
	Value   interface{}
}

// CommandData is one scripted outcome together with the command that consumed it
type CommandData struct {
	Reader   *ReaderData
	NonQuery int64
	Scalar   interface{}
	Kind     OutcomeKind

	Text       string
	Parameters []Parameter
	Executed   bool
}

// Consumed reports whether a command executed against the entry. Reading
// the rows of a row set is not required.
func (c *CommandData) Consumed() bool {
	return c.Executed
}

// Option configures a DB
type Option func(*DB)

// WithLogger sets the logger used for command events
func WithLogger(logger *zap.Logger) Option {
	return func(d *DB) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// DB holds the scripted command queue. It is safe for concurrent use;
// commands are consumed strictly in order.
type DB struct {
	mu       sync.Mutex
	commands []*CommandData
	next     int
	logger   *zap.Logger
}

// New creates a DB with an empty script
func New(opts ...Option) *DB {
	d := &DB{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewReader scripts a row set with the given column names
func (d *DB) NewReader(names ...string) *DB {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, &CommandData{
		Kind:   KindReader,
		Reader: &ReaderData{Names: append([]string(nil), names...)},
	})
	return d
}

// WithTypes sets the column types of the last scripted row set
func (d *DB) WithTypes(types ...reflect.Type) *DB {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastReader("WithTypes").Types = append([]reflect.Type(nil), types...)
	return d
}

// NewRow appends a row to the last scripted row set
func (d *DB) NewRow(values ...interface{}) *DB {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.lastReader("NewRow")
	r.Values = append(r.Values, append([]interface{}(nil), values...))
	return d
}

// NewNonQuery scripts a command affecting n rows, 1 when omitted
func (d *DB) NewNonQuery(n ...int64) *DB {
	affected := int64(1)
	if len(n) > 0 {
		affected = n[0]
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, &CommandData{Kind: KindNonQuery, NonQuery: affected})
	return d
}

// NewScalar scripts a command returning a single value
func (d *DB) NewScalar(v interface{}) *DB {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, &CommandData{Kind: KindScalar, Scalar: v})
	return d
}

// lastReader panics when the script has no row set to extend; that is a
// mistake in the test itself.
func (d *DB) lastReader(op string) *ReaderData {
	if len(d.commands) == 0 || d.commands[len(d.commands)-1].Kind != KindReader {
		panic(fmt.Sprintf("mockdb: %s must follow NewReader", op))
	}
	return d.commands[len(d.commands)-1].Reader
}

// Commands returns every scripted entry in order
func (d *DB) Commands() []*CommandData {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*CommandData(nil), d.commands...)
}

// Command returns the entry at index i, or nil
func (d *DB) Command(i int) *CommandData {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.commands) {
		return nil
	}
	return d.commands[i]
}

// Open returns a *sql.DB backed by the script
func (d *DB) Open() *sql.DB {
	return sql.OpenDB(&connector{db: d})
}

// Verify returns an error naming every scripted entry that was never consumed
func (d *DB) Verify() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var unused []*CommandData
	var indices []int
	for i, cmd := range d.commands {
		if !cmd.Consumed() {
			unused = append(unused, cmd)
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return nil
	}
	return newUnverifiedExpectationsError(unused, indices)
}

// dispatch captures a command into the next entry and checks that the entry
// can serve it
func (d *DB) dispatch(query string, params []Parameter, accept ...OutcomeKind) (*CommandData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	index := d.next
	if index >= len(d.commands) {
		d.logger.Debug("command overrun", zap.Int("index", index), zap.String("query", query))
		return nil, &NoMoreScriptedCommandsError{Index: index}
	}
	d.next++

	cmd := d.commands[index]
	cmd.Text = query
	cmd.Parameters = params

	for _, k := range accept {
		if cmd.Kind == k {
			cmd.Executed = true
			d.logger.Debug("consumed scripted command",
				zap.Int("index", index),
				zap.Stringer("kind", cmd.Kind),
				zap.String("query", query),
				zap.Int("params", len(params)),
			)
			return cmd, nil
		}
	}
	return nil, fmt.Errorf("%w: command %d is scripted as %s", ErrOutcomeMismatch, index, cmd.Kind)
}

// ExecuteReader runs a command that must be scripted as a row set and
// returns a reader over it
func (d *DB) ExecuteReader(ctx context.Context, query string, args ...interface{}) (*Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd, err := d.dispatch(query, parameters(args), KindReader)
	if err != nil {
		return nil, err
	}
	return newReader(cmd.Reader), nil
}

// ExecuteNonQuery runs a command that must be scripted as a non-query
func (d *DB) ExecuteNonQuery(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cmd, err := d.dispatch(query, parameters(args), KindNonQuery)
	if err != nil {
		return 0, err
	}
	return cmd.NonQuery, nil
}

// ExecuteScalar runs a command that must be scripted as a scalar
func (d *DB) ExecuteScalar(ctx context.Context, query string, args ...interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd, err := d.dispatch(query, parameters(args), KindScalar)
	if err != nil {
		return nil, err
	}
	return cmd.Scalar, nil
}

func parameters(args []interface{}) []Parameter {
	params := make([]Parameter, 0, len(args))
	for i, arg := range args {
		p := Parameter{Ordinal: i + 1, Value: arg}
		if named, ok := arg.(sql.NamedArg); ok {
			p.Name = named.Name
			p.Value = named.Value
		}
		params = append(params, p)
	}
	return params
}
