package extension

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// TypeName returns the fully qualified name used to identify t in metadata
func TypeName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// FormatValue renders v in its invariant string form and returns the fully
// qualified name of its type so a reader can restore it
func FormatValue(v interface{}) (string, string) {
	if v == nil {
		return "", ""
	}
	typeName := TypeName(reflect.TypeOf(v))

	switch val := v.(type) {
	case bool:
		return FormatBool(val), typeName
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), typeName
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), typeName
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), typeName
	}

	if s, err := cast.ToStringE(v); err == nil {
		return s, typeName
	}
	return fmt.Sprint(v), typeName
}

// FormatBool renders a flag value
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ParseBool reads a flag value written by FormatBool. Anything unparsable is false.
func ParseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
