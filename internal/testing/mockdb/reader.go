package mockdb

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// Reader is a forward-only cursor over a scripted row set. Typed getters
// coerce the stored value to the requested type.
type Reader struct {
	data   *ReaderData
	pos    int
	closed bool
}

func newReader(data *ReaderData) *Reader {
	return &Reader{data: data, pos: -1}
}

// Read advances to the next row and reports whether there is one
func (r *Reader) Read() bool {
	if r.closed {
		return false
	}
	if r.pos < len(r.data.Values) {
		r.pos++
	}
	return r.pos < len(r.data.Values)
}

// FieldCount returns the number of columns
func (r *Reader) FieldCount() int {
	return len(r.data.Names)
}

// GetName returns the name of column i
func (r *Reader) GetName(i int) (string, error) {
	if err := r.checkColumn("GetName", i); err != nil {
		return "", err
	}
	return r.data.Names[i], nil
}

// GetOrdinal returns the index of the named column, ignoring case
func (r *Reader) GetOrdinal(name string) (int, error) {
	for i, n := range r.data.Names {
		if strings.EqualFold(n, name) {
			return i, nil
		}
	}
	return -1, &CursorStateError{Op: "GetOrdinal", Column: -1, Reason: fmt.Sprintf("no column named %q", name)}
}

// GetFieldType returns the scripted type of column i, or the runtime type of
// its value in the first row when no types were scripted
func (r *Reader) GetFieldType(i int) (reflect.Type, error) {
	if err := r.checkColumn("GetFieldType", i); err != nil {
		return nil, err
	}
	if i < len(r.data.Types) && r.data.Types[i] != nil {
		return r.data.Types[i], nil
	}
	if len(r.data.Values) == 0 || i >= len(r.data.Values[0]) || r.data.Values[0][i] == nil {
		return nil, &NoTypeInformationError{Column: r.data.Names[i]}
	}
	return reflect.TypeOf(r.data.Values[0][i]), nil
}

// GetValue returns the raw value of column i in the current row
func (r *Reader) GetValue(i int) (interface{}, error) {
	if err := r.checkRow("GetValue"); err != nil {
		return nil, err
	}
	if err := r.checkColumn("GetValue", i); err != nil {
		return nil, err
	}
	row := r.data.Values[r.pos]
	if i >= len(row) {
		return nil, nil
	}
	return row[i], nil
}

// GetValues copies the current row into dst and returns the number copied
func (r *Reader) GetValues(dst []interface{}) (int, error) {
	if err := r.checkRow("GetValues"); err != nil {
		return 0, err
	}
	return copy(dst, r.data.Values[r.pos]), nil
}

// IsNull reports whether column i of the current row is nil
func (r *Reader) IsNull(i int) (bool, error) {
	v, err := r.GetValue(i)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}

// GetBool returns column i as a bool
func (r *Reader) GetBool(i int) (bool, error) {
	return get(r, "GetBool", i, cast.ToBoolE)
}

// GetByte returns column i as a byte
func (r *Reader) GetByte(i int) (byte, error) {
	return get(r, "GetByte", i, cast.ToUint8E)
}

// GetInt16 returns column i as an int16
func (r *Reader) GetInt16(i int) (int16, error) {
	return get(r, "GetInt16", i, cast.ToInt16E)
}

// GetInt32 returns column i as an int32
func (r *Reader) GetInt32(i int) (int32, error) {
	return get(r, "GetInt32", i, cast.ToInt32E)
}

// GetInt64 returns column i as an int64
func (r *Reader) GetInt64(i int) (int64, error) {
	return get(r, "GetInt64", i, cast.ToInt64E)
}

// GetFloat64 returns column i as a float64
func (r *Reader) GetFloat64(i int) (float64, error) {
	return get(r, "GetFloat64", i, cast.ToFloat64E)
}

// GetString returns column i as a string
func (r *Reader) GetString(i int) (string, error) {
	return get(r, "GetString", i, cast.ToStringE)
}

// GetTime returns column i as a time
func (r *Reader) GetTime(i int) (time.Time, error) {
	return get(r, "GetTime", i, cast.ToTimeE)
}

// GetGUID returns column i as a UUID
func (r *Reader) GetGUID(i int) (uuid.UUID, error) {
	return get(r, "GetGUID", i, toUUID)
}

// Close ends the cursor. Later reads report no rows.
func (r *Reader) Close() error {
	r.closed = true
	return nil
}

// RecordsAffected is -1 for row sets
func (r *Reader) RecordsAffected() int64 {
	return -1
}

func get[T any](r *Reader, op string, i int, conv func(interface{}) (T, error)) (T, error) {
	var zero T
	v, err := r.GetValue(i)
	if err != nil {
		return zero, err
	}
	out, err := conv(v)
	if err != nil {
		return zero, fmt.Errorf("%s(%d): %w", op, i, err)
	}
	return out, nil
}

func toUUID(v interface{}) (uuid.UUID, error) {
	switch val := v.(type) {
	case uuid.UUID:
		return val, nil
	case string:
		return uuid.Parse(val)
	case []byte:
		if len(val) == 16 {
			return uuid.FromBytes(val)
		}
		return uuid.ParseBytes(val)
	}
	return uuid.Nil, fmt.Errorf("unable to cast %#v of type %T to uuid", v, v)
}

func (r *Reader) checkRow(op string) error {
	switch {
	case r.closed:
		return &CursorStateError{Op: op, Column: -1, Reason: "reader is closed"}
	case r.pos < 0:
		return &CursorStateError{Op: op, Column: -1, Reason: "Read has not been called"}
	case r.pos >= len(r.data.Values):
		return &CursorStateError{Op: op, Column: -1, Reason: "no more rows"}
	}
	return nil
}

func (r *Reader) checkColumn(op string, i int) error {
	if i < 0 || i >= len(r.data.Names) {
		return &CursorStateError{Op: op, Column: i, Reason: fmt.Sprintf("column out of range [0,%d)", len(r.data.Names))}
	}
	return nil
}
