package fluent

import (
	"reflect"

	"github.com/conduit-lang/fluentmap/internal/orm/extension"
)

// FieldMap is the configuration scope of one member of T. Type-level
// operations remain available through the embedded Map.
type FieldMap[T any] struct {
	*Map[T]
	path MemberPath
}

// Path returns the resolved member path
func (f *FieldMap[T]) Path() MemberPath {
	return f.path
}

// Member returns the member node of the field, creating it on first use
func (f *FieldMap[T]) Member() *extension.MemberExtension {
	return f.ext.Members.GetOrAdd(f.path.Path)
}

// Apply records a typed attribute on the member
func (f *FieldMap[T]) Apply(attr Attribute) *FieldMap[T] {
	attr.apply(f.Member().Attributes)
	return f
}

// PrimaryKey marks the member as part of the primary key
func (f *FieldMap[T]) PrimaryKey(order ...int) *FieldMap[T] {
	o := -1
	if len(order) > 0 {
		o = order[0]
	}
	return f.Apply(PrimaryKeyAttr{Order: o})
}

// NonUpdatable excludes the member from generated updates and inserts
func (f *FieldMap[T]) NonUpdatable() *FieldMap[T] {
	return f.Apply(FlagAttr{Name: extension.NonUpdatable, Value: true})
}

// Identity marks the member as database generated
func (f *FieldMap[T]) Identity() *FieldMap[T] {
	return f.Apply(FlagAttr{Name: extension.Identity, Value: true})
}

// Trimmable trims trailing spaces on read
func (f *FieldMap[T]) Trimmable() *FieldMap[T] {
	return f.Apply(FlagAttr{Name: extension.Trimmable, Value: true})
}

// SqlIgnore keeps the member out of generated SQL. Hand-written commands may
// still set it.
func (f *FieldMap[T]) SqlIgnore(ignore ...bool) *FieldMap[T] {
	return f.Apply(FlagAttr{Name: extension.SqlIgnore, Value: optBool(ignore)})
}

// MapIgnore keeps the member out of all mapping, hand-written commands included
func (f *FieldMap[T]) MapIgnore(ignore ...bool) *FieldMap[T] {
	return f.Apply(FlagAttr{Name: extension.MapIgnore, Value: optBool(ignore)})
}

// Nullable marks whether the column accepts NULL
func (f *FieldMap[T]) Nullable(isNullable ...bool) *FieldMap[T] {
	return f.Apply(FlagAttr{Name: extension.Nullable, Value: optBool(isNullable)})
}

// DefaultValue sets the value used when the column holds NULL
func (f *FieldMap[T]) DefaultValue(value interface{}) *FieldMap[T] {
	s, typeName := extension.FormatValue(value)
	return f.Apply(ScalarAttr{Name: extension.DefaultValue, Value: s, ValueType: typeName})
}

// NullValue sets the member value that is written as NULL
func (f *FieldMap[T]) NullValue(value interface{}) *FieldMap[T] {
	s, typeName := extension.FormatValue(value)
	return f.Apply(ScalarAttr{Name: extension.NullValue, Value: s, ValueType: typeName})
}

// MapValue substitutes one or more storage values for a member value
func (f *FieldMap[T]) MapValue(origValue, value interface{}, values ...interface{}) *FieldMap[T] {
	orig, _ := extension.FormatValue(origValue)
	for _, v := range append([]interface{}{value}, values...) {
		s, typeName := extension.FormatValue(v)
		f.Apply(MapValueAttr{OrigValue: orig, Value: s, ValueType: typeName})
	}
	return f
}

// Association starts an association on the member keyed by thisKey members of T.
// It must be finished with ToOne or ToMany.
func (f *FieldMap[T]) Association(canBeNull bool, thisKey string, thisKeys ...string) *AssociationMap[T] {
	keys := make([]string, 0, len(thisKeys)+1)
	for _, k := range append([]string{thisKey}, thisKeys...) {
		keys = append(keys, mustResolve(f.typ, k).Path)
	}
	return &AssociationMap[T]{
		owner:     f,
		canBeNull: canBeNull,
		thisKeys:  keys,
	}
}

// Relation declares a relation to the member's type, or to its element type
// when the member is a collection. Empty and blank index names are dropped.
func (f *FieldMap[T]) Relation(slaveIndex, masterIndex []string) *FieldMap[T] {
	return f.Apply(RelationAttr{
		DestinationType: extension.TypeName(elementType(f.path.Type)),
		SlaveIndex:      slaveIndex,
		MasterIndex:     masterIndex,
	})
}

// MemberMapper records the custom value transform for the member. The
// transform is looked up by type name and never invoked here.
func (f *FieldMap[T]) MemberMapper(memberType, mapperType reflect.Type) *FieldMap[T] {
	return f.Apply(MemberMapperAttr{
		MemberType: extension.TypeName(memberType),
		MapperType: extension.TypeName(mapperType),
	})
}

func optBool(values []bool) bool {
	if len(values) == 0 {
		return true
	}
	return values[0]
}
