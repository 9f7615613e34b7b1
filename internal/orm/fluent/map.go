// Package fluent configures ORM mapping metadata from code. A Map[T] collects
// table, field, key, ignore, value and association settings for the struct
// type T into an extension tree which is then merged into a schema list.
// A Map over a non-struct type such as an enum only carries type-level
// settings, usually storage values through MapEnumValue.
//
// Member paths are dotted chains of exported field names ("Address.City").
// They are validated against T as soon as they are passed in; an invalid path
// panics with *InvalidExpressionError, the same way regexp.MustCompile treats
// a malformed pattern. Use ResolvePath to check a path without panicking.
package fluent

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/fluentmap/internal/orm/extension"
)

// Map is the type-level configuration scope for T
type Map[T any] struct {
	ext *extension.TypeExtension
	typ reflect.Type
}

// New creates an empty configuration for T. Member operations panic with
// *InvalidExpressionError unless T is a struct.
func New[T any]() *Map[T] {
	t := typeOf[T]()
	return &Map[T]{
		ext: extension.NewTypeExtension(extension.TypeName(t)),
		typ: indirect(t),
	}
}

// Extension returns the metadata tree built so far
func (m *Map[T]) Extension() *extension.TypeExtension {
	return m.ext
}

// Type returns the configured type
func (m *Map[T]) Type() reflect.Type {
	return m.typ
}

// Apply records a typed attribute on the type itself
func (m *Map[T]) Apply(attr Attribute) *Map[T] {
	attr.apply(m.ext.Attributes)
	return m
}

// TableNameOption sets an optional component of the table name
type TableNameOption func(*TableNameAttr)

// Owner sets the table owner (schema)
func Owner(owner string) TableNameOption {
	return func(a *TableNameAttr) { a.Owner = owner }
}

// Database sets the database holding the table
func Database(database string) TableNameOption {
	return func(a *TableNameAttr) { a.Database = database }
}

// TableName sets the table name. Each component overwrites any earlier value.
func (m *Map[T]) TableName(name string, opts ...TableNameOption) *Map[T] {
	attr := TableNameAttr{Name: name}
	for _, opt := range opts {
		opt(&attr)
	}
	return m.Apply(attr)
}

// FieldOption sets an optional part of a field mapping
type FieldOption func(*MapFieldAttr)

// Name sets the column name of the field
func Name(mapName string) FieldOption {
	return func(a *MapFieldAttr) { a.MapName = mapName }
}

// Storage sets the backing storage member of the field
func Storage(storage string) FieldOption {
	return func(a *MapFieldAttr) { a.Storage = &storage }
}

// InheritanceDiscriminator marks whether the field holds the inheritance discriminator
func InheritanceDiscriminator(is bool) FieldOption {
	return func(a *MapFieldAttr) { a.IsDiscriminator = &is }
}

// MapField maps a member. A direct member gets the options as member
// attributes; a nested member ("Address.City") is recorded as a type-level
// rename from its path to the Name option, and Storage and
// InheritanceDiscriminator are ignored for it.
func (m *Map[T]) MapField(path string, opts ...FieldOption) *FieldMap[T] {
	fm := m.Field(path)
	var attr MapFieldAttr
	for _, opt := range opts {
		opt(&attr)
	}
	if fm.path.IsNested() {
		m.Apply(FieldRenameAttr{OrigName: fm.path.Path, MapName: attr.MapName})
		return fm
	}
	fm.Apply(attr)
	return fm
}

// Field returns the scope of a member without recording anything
func (m *Map[T]) Field(path string) *FieldMap[T] {
	return &FieldMap[T]{
		Map:  m,
		path: mustResolve(m.typ, path),
	}
}

// PrimaryKey marks a member as part of the primary key, order defaults to -1
func (m *Map[T]) PrimaryKey(path string, order ...int) *Map[T] {
	m.Field(path).PrimaryKey(order...)
	return m
}

// NonUpdatable excludes a member from generated updates and inserts
func (m *Map[T]) NonUpdatable(path string) *Map[T] {
	m.Field(path).NonUpdatable()
	return m
}

// Identity marks a member as database generated
func (m *Map[T]) Identity(path string) *Map[T] {
	m.Field(path).Identity()
	return m
}

// Trimmable trims trailing spaces of a string member on read
func (m *Map[T]) Trimmable(path string) *Map[T] {
	m.Field(path).Trimmable()
	return m
}

// SqlIgnore excludes a member from generated SQL
func (m *Map[T]) SqlIgnore(path string, ignore ...bool) *Map[T] {
	m.Field(path).SqlIgnore(ignore...)
	return m
}

// MapIgnore excludes a member from all mapping
func (m *Map[T]) MapIgnore(path string, ignore ...bool) *Map[T] {
	m.Field(path).MapIgnore(ignore...)
	return m
}

// DefaultValue sets the value used when the column holds NULL
func (m *Map[T]) DefaultValue(path string, value interface{}) *Map[T] {
	m.Field(path).DefaultValue(value)
	return m
}

// NullValue sets the member value written as NULL
func (m *Map[T]) NullValue(path string, value interface{}) *Map[T] {
	m.Field(path).NullValue(value)
	return m
}

// Nullable marks whether the member's column accepts NULL, default true
func (m *Map[T]) Nullable(path string, isNullable ...bool) *Map[T] {
	m.Field(path).Nullable(isNullable...)
	return m
}

// Association starts an association declared on path keyed by thisKey members of T
func (m *Map[T]) Association(path string, canBeNull bool, thisKey string, thisKeys ...string) *AssociationMap[T] {
	return m.Field(path).Association(canBeNull, thisKey, thisKeys...)
}

// AssociationNullable is Association with canBeNull set
func (m *Map[T]) AssociationNullable(path string, thisKey string, thisKeys ...string) *AssociationMap[T] {
	return m.Field(path).Association(true, thisKey, thisKeys...)
}

// Relation declares a relation on path using the given index names
func (m *Map[T]) Relation(path string, slaveIndex, masterIndex []string) *Map[T] {
	m.Field(path).Relation(slaveIndex, masterIndex)
	return m
}

// MemberMapper records the custom value transform used for a member
func (m *Map[T]) MemberMapper(path string, memberType, mapperType reflect.Type) *Map[T] {
	m.Field(path).MemberMapper(memberType, mapperType)
	return m
}

// MapValue substitutes storage values for a type-level domain value, such
// as a discriminator code
func (m *Map[T]) MapValue(origValue, value interface{}, values ...interface{}) *Map[T] {
	orig, _ := extension.FormatValue(origValue)
	for _, v := range append([]interface{}{value}, values...) {
		s, typeName := extension.FormatValue(v)
		m.Apply(MapValueAttr{OrigValue: orig, Value: s, ValueType: typeName})
	}
	return m
}

// MapEnumValue substitutes storage values for an enum constant. The constant
// is recorded as a member named by its String form. Configured on the enum's
// own map, New[Status]().MapEnumValue(StatusActive, "A"), the values apply to
// every column of that type that declares none itself.
func (m *Map[T]) MapEnumValue(origValue fmt.Stringer, value interface{}, values ...interface{}) *Map[T] {
	member := m.ext.Members.GetOrAdd(origValue.String())
	for _, v := range append([]interface{}{value}, values...) {
		s, typeName := extension.FormatValue(v)
		MapValueAttr{OrigValue: origValue.String(), Value: s, ValueType: typeName}.apply(member.Attributes)
	}
	return m
}

// InheritanceOption sets an optional part of an inheritance mapping
type InheritanceOption func(*InheritanceMappingAttr)

// Code sets the discriminator value selecting the mapped type
func Code(code interface{}) InheritanceOption {
	return func(a *InheritanceMappingAttr) {
		s, typeName := extension.FormatValue(code)
		a.Code = &s
		a.CodeType = typeName
	}
}

// IsDefault marks the mapped type as the fallback for unknown codes
func IsDefault(isDefault bool) InheritanceOption {
	return func(a *InheritanceMappingAttr) { a.IsDefault = &isDefault }
}

// InheritanceMapping appends a discriminator mapping to the type
func (m *Map[T]) InheritanceMapping(discriminatorType reflect.Type, opts ...InheritanceOption) *Map[T] {
	attr := InheritanceMappingAttr{Type: extension.TypeName(discriminatorType)}
	for _, opt := range opts {
		opt(&attr)
	}
	return m.Apply(attr)
}

// MapTo merges the tree into list, replacing any tree of the same type
func (m *Map[T]) MapTo(list *extension.List, opts ...Option) {
	Configure(list, []*extension.TypeExtension{m.ext}, opts...)
}
