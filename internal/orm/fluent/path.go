package fluent

import (
	"reflect"
	"strings"
	"unicode"
)

// MemberNameSeparator joins the segments of a nested member path
const MemberNameSeparator = "."

// MemberPath is a resolved member expression
type MemberPath struct {
	// Path is the dotted path, outermost member first
	Path string
	// Segments holds the individual member names
	Segments []string
	// Type is the declared type of the last member
	Type reflect.Type
}

// IsNested reports whether the path reaches through another member
func (p MemberPath) IsNested() bool {
	return len(p.Segments) > 1
}

// ResolvePath resolves expr against T without panicking
func ResolvePath[T any](expr string) (MemberPath, error) {
	return Resolve(typeOf[T](), expr)
}

// Resolve validates expr as a chain of exported fields starting at t and
// returns the resolved path. Pointers are followed between segments.
func Resolve(t reflect.Type, expr string) (MemberPath, error) {
	root := indirect(t)
	if root.Kind() != reflect.Struct {
		return MemberPath{}, &InvalidExpressionError{Type: t, Expr: expr, Reason: "type is not a struct"}
	}
	if strings.TrimSpace(expr) == "" {
		return MemberPath{}, &InvalidExpressionError{Type: t, Expr: expr, Reason: "empty expression"}
	}

	segments := strings.Split(expr, MemberNameSeparator)
	current := root
	var fieldType reflect.Type
	for i, seg := range segments {
		if reason := checkSegment(seg); reason != "" {
			return MemberPath{}, &InvalidExpressionError{Type: t, Expr: expr, Reason: reason}
		}
		if current.Kind() != reflect.Struct {
			return MemberPath{}, &InvalidExpressionError{
				Type:   t,
				Expr:   expr,
				Reason: "member " + strings.Join(segments[:i], MemberNameSeparator) + " has no fields",
			}
		}
		field, ok := current.FieldByName(seg)
		if !ok {
			return MemberPath{}, &InvalidExpressionError{Type: t, Expr: expr, Reason: "unknown member " + seg}
		}
		if !field.IsExported() {
			return MemberPath{}, &InvalidExpressionError{Type: t, Expr: expr, Reason: "member " + seg + " is not exported"}
		}
		fieldType = field.Type
		current = indirect(field.Type)
	}

	return MemberPath{
		Path:     expr,
		Segments: segments,
		Type:     fieldType,
	}, nil
}

func checkSegment(seg string) string {
	switch {
	case seg == "":
		return "empty member name"
	case strings.ContainsAny(seg, "()"):
		return "method calls are not member access"
	case strings.ContainsAny(seg, "[]"):
		return "indexers are not member access"
	}
	for i, r := range seg {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return "invalid character " + string(r) + " in member name"
	}
	return ""
}

func mustResolve(t reflect.Type, expr string) MemberPath {
	p, err := Resolve(t, expr)
	if err != nil {
		panic(err)
	}
	return p
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// isCollection reports whether t holds a sequence of elements
func isCollection(t reflect.Type) bool {
	t = indirect(t)
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return t.Kind() != reflect.Slice || t.Elem().Kind() != reflect.Uint8
	}
	return false
}

// elementType unwraps one level of collection, then pointers
func elementType(t reflect.Type) reflect.Type {
	t = indirect(t)
	if isCollection(t) {
		return indirect(t.Elem())
	}
	return t
}
