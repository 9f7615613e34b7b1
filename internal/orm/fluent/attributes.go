package fluent

import (
	"strconv"
	"strings"

	"github.com/conduit-lang/fluentmap/internal/orm/extension"
)

// Attribute is one typed metadata fact. The set of implementations is closed;
// each knows the external key names it is stored under.
type Attribute interface {
	// AttributeName returns the name the attribute is registered under
	AttributeName() string
	apply(attrs extension.AttributeNameCollection)
}

// TableNameAttr names the table a type maps to. Empty components are left untouched.
type TableNameAttr struct {
	Name     string
	Owner    string
	Database string
}

func (a TableNameAttr) AttributeName() string { return extension.TableName }

func (a TableNameAttr) apply(attrs extension.AttributeNameCollection) {
	if a.Name != "" {
		attrs.Set(extension.TableName, a.Name)
	}
	if a.Owner != "" {
		attrs.Set(extension.OwnerName, a.Owner)
	}
	if a.Database != "" {
		attrs.Set(extension.DatabaseName, a.Database)
	}
}

// MapFieldAttr configures the column of a direct member
type MapFieldAttr struct {
	MapName         string
	Storage         *string
	IsDiscriminator *bool
}

func (a MapFieldAttr) AttributeName() string { return extension.MapField }

func (a MapFieldAttr) apply(attrs extension.AttributeNameCollection) {
	if a.MapName != "" {
		attrs.Set(extension.MapField, a.MapName)
	}
	if a.Storage != nil {
		attrs.Set(extension.FieldStorage, *a.Storage)
	}
	if a.IsDiscriminator != nil {
		attrs.Set(extension.IsInheritanceDiscriminator, extension.FormatBool(*a.IsDiscriminator))
	}
}

// FieldRenameAttr renames a member reached through another member. It is
// stored on the type because the member belongs to a nested struct.
type FieldRenameAttr struct {
	OrigName string
	MapName  string
}

func (a FieldRenameAttr) AttributeName() string { return extension.MapField }

func (a FieldRenameAttr) apply(attrs extension.AttributeNameCollection) {
	rec := extension.NewAttributeExtension()
	rec.Values.Set(extension.OrigName, a.OrigName)
	rec.Values.Set(extension.MapName, a.MapName)
	attrs.Append(extension.MapField, rec)
}

// PrimaryKeyAttr marks a member as part of the primary key. Order is kept as given.
type PrimaryKeyAttr struct {
	Order int
}

func (a PrimaryKeyAttr) AttributeName() string { return extension.PrimaryKey }

func (a PrimaryKeyAttr) apply(attrs extension.AttributeNameCollection) {
	attrs.Set(extension.PrimaryKey, strconv.Itoa(a.Order))
}

// FlagAttr is a boolean member attribute (NonUpdatable, Identity, Trimmable,
// SqlIgnore, MapIgnore, Nullable)
type FlagAttr struct {
	Name  string
	Value bool
}

func (a FlagAttr) AttributeName() string { return a.Name }

func (a FlagAttr) apply(attrs extension.AttributeNameCollection) {
	attrs.Set(a.Name, extension.FormatBool(a.Value))
}

// ScalarAttr is a single typed value attribute (DefaultValue, NullValue)
type ScalarAttr struct {
	Name      string
	Value     string
	ValueType string
}

func (a ScalarAttr) AttributeName() string { return a.Name }

func (a ScalarAttr) apply(attrs extension.AttributeNameCollection) {
	rec := extension.NewValueAttribute(a.Value)
	rec.Values.Set(extension.ValueKey+extension.TypePostfix, a.ValueType)
	attrs.Replace(a.Name, rec)
}

// MapValueAttr substitutes a storage value for a domain value
type MapValueAttr struct {
	OrigValue string
	Value     string
	ValueType string
}

func (a MapValueAttr) AttributeName() string { return extension.MapValue }

func (a MapValueAttr) apply(attrs extension.AttributeNameCollection) {
	rec := extension.NewAttributeExtension()
	rec.Values.Set(extension.OrigValue, a.OrigValue)
	rec.Values.Set(extension.ValueKey, a.Value)
	rec.Values.Set(extension.ValueKey+extension.TypePostfix, a.ValueType)
	attrs.Append(extension.MapValue, rec)
}

// AssociationAttr links this type's key members to the other type's key members
type AssociationAttr struct {
	ThisKey   []string
	OtherKey  []string
	CanBeNull bool
}

func (a AssociationAttr) AttributeName() string { return extension.Association }

func (a AssociationAttr) apply(attrs extension.AttributeNameCollection) {
	rec := extension.NewAttributeExtension()
	rec.Values.Set(extension.ThisKey, mustEncodeKeys(a.ThisKey))
	rec.Values.Set(extension.OtherKey, mustEncodeKeys(a.OtherKey))
	rec.Values.Set(extension.CanBeNull, extension.FormatBool(a.CanBeNull))
	attrs.Replace(extension.Association, rec)
}

// RelationAttr declares a relation to DestinationType through named indexes
type RelationAttr struct {
	DestinationType string
	SlaveIndex      []string
	MasterIndex     []string
}

func (a RelationAttr) AttributeName() string { return extension.Relation }

func (a RelationAttr) apply(attrs extension.AttributeNameCollection) {
	rec := extension.NewAttributeExtension()
	rec.Values.Set(extension.DestinationType, a.DestinationType)
	fillRelationIndex(rec, extension.SlaveIndex, a.SlaveIndex)
	fillRelationIndex(rec, extension.MasterIndex, a.MasterIndex)
	attrs.Replace(extension.Relation, rec)
}

func fillRelationIndex(rec *extension.AttributeExtension, name string, index []string) {
	for _, s := range index {
		if strings.TrimSpace(s) == "" {
			continue
		}
		ae := extension.NewAttributeExtension()
		ae.Values.Set(extension.Name, s)
		rec.Attributes.Append(name, ae)
	}
}

// InheritanceMappingAttr maps a discriminator code to a concrete type
type InheritanceMappingAttr struct {
	Type      string
	Code      *string
	CodeType  string
	IsDefault *bool
}

func (a InheritanceMappingAttr) AttributeName() string { return extension.InheritanceMapping }

func (a InheritanceMappingAttr) apply(attrs extension.AttributeNameCollection) {
	rec := extension.NewAttributeExtension()
	rec.Values.Set(extension.Type, a.Type)
	if a.Code != nil {
		rec.Values.Set(extension.Code, *a.Code)
		rec.Values.Set(extension.Code+extension.TypePostfix, a.CodeType)
	}
	if a.IsDefault != nil {
		rec.Values.Set(extension.IsDefault, extension.FormatBool(*a.IsDefault))
	}
	attrs.Append(extension.InheritanceMapping, rec)
}

// MemberMapperAttr names the custom value transform applied to a member
type MemberMapperAttr struct {
	MemberType string
	MapperType string
}

func (a MemberMapperAttr) AttributeName() string { return extension.MemberMapper }

func (a MemberMapperAttr) apply(attrs extension.AttributeNameCollection) {
	rec := extension.NewAttributeExtension()
	rec.Values.Set(extension.MemberType, a.MemberType)
	rec.Values.Set(extension.MemberMapperType, a.MapperType)
	attrs.Replace(extension.MemberMapper, rec)
}

func mustEncodeKeys(keys []string) string {
	encoded, err := extension.EncodeKeys(keys)
	if err != nil {
		panic(err)
	}
	return encoded
}
