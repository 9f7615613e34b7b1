package mapping

import (
	"database/sql"
	"database/sql/driver"
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/conduit-lang/fluentmap/internal/orm/extension"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// isScalar reports whether a member of type t maps to a single column
func isScalar(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType || t == uuidType {
		return true
	}
	if t.Implements(valuerType) || reflect.PtrTo(t).Implements(scannerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	}
	return false
}

// ParseTyped restores a value written by extension.FormatValue. Unknown
// type names come back as the raw string.
func ParseTyped(s, typeName string) (interface{}, error) {
	switch typeName {
	case "":
		return s, nil
	case "string":
		return s, nil
	case "bool":
		return extension.ParseBool(s), nil
	case "int":
		return cast.ToIntE(s)
	case "int8":
		return cast.ToInt8E(s)
	case "int16":
		return cast.ToInt16E(s)
	case "int32":
		return cast.ToInt32E(s)
	case "int64":
		return cast.ToInt64E(s)
	case "uint":
		return cast.ToUintE(s)
	case "uint8":
		return cast.ToUint8E(s)
	case "uint16":
		return cast.ToUint16E(s)
	case "uint32":
		return cast.ToUint32E(s)
	case "uint64":
		return cast.ToUint64E(s)
	case "float32":
		return cast.ToFloat32E(s)
	case "float64":
		return cast.ToFloat64E(s)
	case "time.Time":
		return time.Parse(time.RFC3339Nano, s)
	case extension.TypeName(uuidType):
		return uuid.Parse(s)
	}
	return s, nil
}

// driverValue unwraps v into something database/sql can bind
func driverValue(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	v = rv.Interface()

	switch val := v.(type) {
	case driver.Valuer:
		return val.Value()
	case time.Time, []byte, string, bool, int64, float64:
		return val, nil
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	}
	return v, nil
}

// storageText renders a storage value for comparison against metadata values
func storageText(v interface{}) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	s, _ := extension.FormatValue(v)
	return s
}

func trimValue(v interface{}) interface{} {
	switch s := v.(type) {
	case string:
		return strings.TrimRight(s, " ")
	case []byte:
		return strings.TrimRight(string(s), " ")
	}
	return v
}

// setValue assigns a storage value to dst, converting with cast where the
// types differ. dst must be addressable.
func setValue(dst reflect.Value, v interface{}) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		p := reflect.New(dst.Type().Elem())
		if err := setValue(p.Elem(), v); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}

	if sc, ok := dst.Addr().Interface().(sql.Scanner); ok {
		return sc.Scan(v)
	}
	// time.Time is left to cast, which accepts more layouts than RFC 3339
	if tu, ok := dst.Addr().Interface().(encoding.TextUnmarshaler); ok && dst.Type() != timeType {
		switch s := v.(type) {
		case string:
			return tu.UnmarshalText([]byte(s))
		case []byte:
			return tu.UnmarshalText(s)
		}
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(dst.Type()) {
		dst.Set(rv)
		return nil
	}

	var err error
	switch dst.Kind() {
	case reflect.Bool:
		var b bool
		if b, err = cast.ToBoolE(v); err == nil {
			dst.SetBool(b)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		if n, err = cast.ToInt64E(v); err == nil {
			if dst.OverflowInt(n) {
				return fmt.Errorf("%w: %d overflows %s", ErrConversion, n, dst.Type())
			}
			dst.SetInt(n)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var n uint64
		if n, err = cast.ToUint64E(v); err == nil {
			if dst.OverflowUint(n) {
				return fmt.Errorf("%w: %d overflows %s", ErrConversion, n, dst.Type())
			}
			dst.SetUint(n)
		}
	case reflect.Float32, reflect.Float64:
		var f float64
		if f, err = cast.ToFloat64E(v); err == nil {
			dst.SetFloat(f)
		}
	case reflect.String:
		var s string
		if s, err = cast.ToStringE(v); err == nil {
			dst.SetString(s)
		}
	case reflect.Slice:
		if dst.Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("%w: %T into %s", ErrConversion, v, dst.Type())
		}
		var s string
		if s, err = cast.ToStringE(v); err == nil {
			dst.SetBytes([]byte(s))
		}
	case reflect.Struct:
		if dst.Type() != timeType {
			return fmt.Errorf("%w: %T into %s", ErrConversion, v, dst.Type())
		}
		var t time.Time
		if t, err = cast.ToTimeE(v); err == nil {
			dst.Set(reflect.ValueOf(t))
		}
	default:
		if rv.Type().ConvertibleTo(dst.Type()) {
			dst.Set(rv.Convert(dst.Type()))
			return nil
		}
		return fmt.Errorf("%w: %T into %s", ErrConversion, v, dst.Type())
	}

	if err != nil {
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}
	return nil
}
