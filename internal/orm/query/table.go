package query

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/fluentmap/internal/orm/mapping"
)

// Table generates and runs SQL for the struct type T
type Table[T any] struct {
	db     *DB
	mapper *mapping.ObjectMapper
}

// For returns the table of T on db
func For[T any](db *DB) (*Table[T], error) {
	om, err := mapping.MapperOf[T](db.schema)
	if err != nil {
		return nil, err
	}
	return &Table[T]{db: db, mapper: om}, nil
}

// Must panics if err is non-nil. It is meant for tables declared once at
// startup.
func Must[T any](table *Table[T], err error) *Table[T] {
	if err != nil {
		panic(err)
	}
	return table
}

// Mapper returns the object mapper of T
func (t *Table[T]) Mapper() *mapping.ObjectMapper {
	return t.mapper
}

// Name returns the quoted, qualified table name
func (t *Table[T]) Name() string {
	return TableName(t.db.dialect, t.mapper)
}

func (t *Table[T]) quote(c *mapping.Column) string {
	return t.db.dialect.Quote(c.Name)
}

// selectColumns lists the columns generated queries read
func (t *Table[T]) selectColumns() []*mapping.Column {
	cols := make([]*mapping.Column, 0, len(t.mapper.Columns))
	for _, c := range t.mapper.Columns {
		if !c.SqlIgnore {
			cols = append(cols, c)
		}
	}
	return cols
}

// insertColumns lists the columns generated inserts write
func (t *Table[T]) insertColumns() []*mapping.Column {
	cols := make([]*mapping.Column, 0, len(t.mapper.Columns))
	for _, c := range t.mapper.Columns {
		if c.SqlIgnore || c.Identity || c.NonUpdatable {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// updateColumns lists the columns generated updates set
func (t *Table[T]) updateColumns() []*mapping.Column {
	cols := make([]*mapping.Column, 0, len(t.mapper.Columns))
	for _, c := range t.mapper.Columns {
		if c.SqlIgnore || c.Identity || c.NonUpdatable || c.PrimaryKey {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

func (t *Table[T]) identity() *mapping.Column {
	for _, c := range t.mapper.Columns {
		if c.Identity && !c.SqlIgnore {
			return c
		}
	}
	return nil
}

// column resolves a member path, or failing that a column name, for use in
// generated SQL
func (t *Table[T]) column(field string) (*mapping.Column, error) {
	if t.mapper.IsMapIgnored(field) {
		return nil, fmt.Errorf("%w: %s", ErrIgnoredField, field)
	}
	c, ok := t.mapper.Column(field)
	if !ok {
		c, ok = t.mapper.ColumnByName(field)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, field)
	}
	if c.SqlIgnore {
		return nil, fmt.Errorf("%w: %s", ErrIgnoredField, field)
	}
	return c, nil
}

func (t *Table[T]) keyWhere(p *params, keys []interface{}) (string, error) {
	pks := t.mapper.PrimaryKeys()
	if len(pks) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoPrimaryKey, t.mapper.TypeName)
	}
	if len(keys) != len(pks) {
		return "", fmt.Errorf("%w: %s has %d key columns, got %d values", ErrKeyCount, t.mapper.TypeName, len(pks), len(keys))
	}

	parts := make([]string, len(pks))
	for i, c := range pks {
		v, err := t.mapper.StorageValue(c, keys[i])
		if err != nil {
			return "", err
		}
		parts[i] = fmt.Sprintf("%s = %s", t.quote(c), p.add(v))
	}
	return strings.Join(parts, " AND "), nil
}

func (t *Table[T]) keyValues(obj *T) []interface{} {
	src := reflect.ValueOf(obj).Elem()
	pks := t.mapper.PrimaryKeys()
	keys := make([]interface{}, len(pks))
	for i, c := range pks {
		keys[i] = src.FieldByIndex(c.Index).Interface()
	}
	return keys
}

// InsertSQL renders the INSERT of obj. SqlIgnore, Identity and NonUpdatable
// members are left out.
func (t *Table[T]) InsertSQL(obj *T) (string, []interface{}, error) {
	cols := t.insertColumns()
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("%w: %s", ErrNoColumns, t.mapper.TypeName)
	}

	src := reflect.ValueOf(obj)
	p := &params{dialect: t.db.dialect}
	names := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		v, err := t.mapper.Get(src, c)
		if err != nil {
			return "", nil, err
		}
		names[i] = t.quote(c)
		placeholders[i] = p.add(v)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name(),
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
	)
	if id := t.identity(); id != nil && t.db.dialect.Returning() {
		query += " RETURNING " + t.quote(id)
	}
	return query, p.args, nil
}

// InsertValuesSQL renders an INSERT of explicit member values. Members are
// written in mapping order.
func (t *Table[T]) InsertValuesSQL(values map[string]interface{}) (string, []interface{}, error) {
	if len(values) == 0 {
		return "", nil, fmt.Errorf("%w: %s", ErrNoColumns, t.mapper.TypeName)
	}

	byColumn := make(map[*mapping.Column]interface{}, len(values))
	for field, v := range values {
		c, err := t.column(field)
		if err != nil {
			return "", nil, err
		}
		byColumn[c] = v
	}

	p := &params{dialect: t.db.dialect}
	var names, placeholders []string
	for _, c := range t.mapper.Columns {
		v, ok := byColumn[c]
		if !ok {
			continue
		}
		sv, err := t.mapper.StorageValue(c, v)
		if err != nil {
			return "", nil, err
		}
		names = append(names, t.quote(c))
		placeholders = append(placeholders, p.add(sv))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name(),
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
	)
	return query, p.args, nil
}

// UpdateSQL renders the UPDATE of obj by primary key
func (t *Table[T]) UpdateSQL(obj *T) (string, []interface{}, error) {
	cols := t.updateColumns()
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("%w: %s", ErrNoColumns, t.mapper.TypeName)
	}

	src := reflect.ValueOf(obj)
	p := &params{dialect: t.db.dialect}
	sets := make([]string, len(cols))
	for i, c := range cols {
		v, err := t.mapper.Get(src, c)
		if err != nil {
			return "", nil, err
		}
		sets[i] = fmt.Sprintf("%s = %s", t.quote(c), p.add(v))
	}

	where, err := t.keyWhere(p, t.keyValues(obj))
	if err != nil {
		return "", nil, err
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", t.Name(), strings.Join(sets, ", "), where)
	return query, p.args, nil
}

// DeleteSQL renders the DELETE of obj by primary key
func (t *Table[T]) DeleteSQL(obj *T) (string, []interface{}, error) {
	p := &params{dialect: t.db.dialect}
	where, err := t.keyWhere(p, t.keyValues(obj))
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", t.Name(), where), p.args, nil
}

// SelectSQL renders a SELECT of every non-ignored column filtered by conds
func (t *Table[T]) SelectSQL(conds ...Condition) (string, []interface{}, error) {
	p := &params{dialect: t.db.dialect}
	where, err := t.where(p, conds)
	if err != nil {
		return "", nil, err
	}
	return t.selectFrom(where), p.args, nil
}

// SelectByKeySQL renders a SELECT of one row by primary key values, given
// in key order
func (t *Table[T]) SelectByKeySQL(keys ...interface{}) (string, []interface{}, error) {
	p := &params{dialect: t.db.dialect}
	where, err := t.keyWhere(p, keys)
	if err != nil {
		return "", nil, err
	}
	return t.selectFrom(where), p.args, nil
}

// CountSQL renders a SELECT COUNT(*) filtered by conds
func (t *Table[T]) CountSQL(conds ...Condition) (string, []interface{}, error) {
	p := &params{dialect: t.db.dialect}
	where, err := t.where(p, conds)
	if err != nil {
		return "", nil, err
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", t.Name())
	if where != "" {
		query += " WHERE " + where
	}
	return query, p.args, nil
}

func (t *Table[T]) selectFrom(where string) string {
	cols := t.selectColumns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = t.quote(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), t.Name())
	if where != "" {
		query += " WHERE " + where
	}
	return query
}

func (t *Table[T]) where(p *params, conds []Condition) (string, error) {
	var b strings.Builder
	for i, cond := range conds {
		c, err := t.column(cond.Field)
		if err != nil {
			return "", err
		}
		sql, err := conditionToSQL(cond, t.quote(c), p, func(v interface{}) (interface{}, error) {
			return t.mapper.StorageValue(c, v)
		})
		if err != nil {
			return "", fmt.Errorf("failed to build condition: %w", err)
		}
		if i > 0 {
			if cond.Or {
				b.WriteString(" OR ")
			} else {
				b.WriteString(" AND ")
			}
		}
		b.WriteString(sql)
	}
	return b.String(), nil
}

// Insert writes obj. When the type has an identity column it is read back
// into obj, through RETURNING or the driver's last insert id.
func (t *Table[T]) Insert(ctx context.Context, obj *T) (int64, error) {
	query, args, err := t.InsertSQL(obj)
	if err != nil {
		return 0, err
	}
	t.db.logger.Debug("insert", zap.String("sql", query), zap.Int("args", len(args)))

	id := t.identity()
	if id != nil && t.db.dialect.Returning() {
		var v interface{}
		if err := t.db.conn.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
			return 0, fmt.Errorf("failed to insert record: %w", ConvertDBError(err))
		}
		if err := t.mapper.Set(reflect.ValueOf(obj), id, v); err != nil {
			return 0, err
		}
		return 1, nil
	}

	res, err := t.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", ConvertDBError(err))
	}
	if id != nil {
		if last, err := res.LastInsertId(); err == nil {
			if err := t.mapper.Set(reflect.ValueOf(obj), id, last); err != nil {
				return 0, err
			}
		}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// InsertValues writes explicit member values. Ignored members are rejected
// with ErrIgnoredField.
func (t *Table[T]) InsertValues(ctx context.Context, values map[string]interface{}) (int64, error) {
	query, args, err := t.InsertValuesSQL(values)
	if err != nil {
		return 0, err
	}
	n, err := t.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", err)
	}
	return n, nil
}

// Update writes obj by primary key and returns the affected row count
func (t *Table[T]) Update(ctx context.Context, obj *T) (int64, error) {
	query, args, err := t.UpdateSQL(obj)
	if err != nil {
		return 0, err
	}
	n, err := t.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update record: %w", err)
	}
	return n, nil
}

// Delete removes obj by primary key and returns the affected row count
func (t *Table[T]) Delete(ctx context.Context, obj *T) (int64, error) {
	query, args, err := t.DeleteSQL(obj)
	if err != nil {
		return 0, err
	}
	n, err := t.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete record: %w", err)
	}
	return n, nil
}

// Select returns every row matching conds
func (t *Table[T]) Select(ctx context.Context, conds ...Condition) ([]T, error) {
	query, args, err := t.SelectSQL(conds...)
	if err != nil {
		return nil, err
	}
	return queryInto[T](ctx, t.db, t.mapper, query, args)
}

// SelectByKey returns the row with the given primary key values or ErrNotFound
func (t *Table[T]) SelectByKey(ctx context.Context, keys ...interface{}) (*T, error) {
	query, args, err := t.SelectByKeySQL(keys...)
	if err != nil {
		return nil, err
	}
	rows, err := queryInto[T](ctx, t.db, t.mapper, query, args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// Count returns the number of rows matching conds
func (t *Table[T]) Count(ctx context.Context, conds ...Condition) (int64, error) {
	query, args, err := t.CountSQL(conds...)
	if err != nil {
		return 0, err
	}
	t.db.logger.Debug("count", zap.String("sql", query), zap.Int("args", len(args)))

	var n int64
	if err := t.db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", ConvertDBError(err))
	}
	return n, nil
}
