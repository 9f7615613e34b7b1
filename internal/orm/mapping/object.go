package mapping

import (
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/conduit-lang/fluentmap/internal/orm/extension"
)

// Scalar is a typed value read back from metadata
type Scalar struct {
	Value string
	Type  string
}

// Parse restores the typed value
func (s Scalar) Parse() (interface{}, error) {
	return ParseTyped(s.Value, s.Type)
}

// ValueMap pairs a member value with the storage value that replaces it
type ValueMap struct {
	Orig  string
	Value string
	Type  string
}

// Column maps one member to one column
type Column struct {
	Member          string
	Name            string
	Index           []int
	Type            reflect.Type
	PrimaryKey      bool
	PrimaryKeyOrder int
	Identity        bool
	NonUpdatable    bool
	SqlIgnore       bool
	Trimmable       bool
	Nullable        bool
	Storage         string
	IsDiscriminator bool
	Default         *Scalar
	Null            *Scalar
	Values          []ValueMap
	Mapper          MemberMapper
}

// Association links key members of two mapped types
type Association struct {
	Member    string
	ThisKey   []string
	OtherKey  []string
	CanBeNull bool
	Many      bool
}

// Relation links a member to DestinationType through named indexes
type Relation struct {
	Member          string
	DestinationType string
	SlaveIndex      []string
	MasterIndex     []string
}

// InheritanceMapping maps a discriminator code to a concrete type name
type InheritanceMapping struct {
	Type      string
	Code      string
	CodeType  string
	HasCode   bool
	IsDefault bool
}

// ObjectMapper is the mapping of one struct type to one table
type ObjectMapper struct {
	Type         reflect.Type
	TypeName     string
	Table        string
	Owner        string
	Database     string
	Columns      []*Column
	MapIgnored   []string
	Associations []*Association
	Relations    []*Relation
	Inheritance  []InheritanceMapping
	Renames      map[string]string

	byMember map[string]*Column
	byName   map[string]*Column
}

// Column returns the column of a member path
func (m *ObjectMapper) Column(member string) (*Column, bool) {
	c, ok := m.byMember[member]
	return c, ok
}

// ColumnByName returns the column with the given name, ignoring case
func (m *ObjectMapper) ColumnByName(name string) (*Column, bool) {
	c, ok := m.byName[strings.ToLower(name)]
	return c, ok
}

// IsMapIgnored reports whether member is excluded from all mapping
func (m *ObjectMapper) IsMapIgnored(member string) bool {
	for _, ig := range m.MapIgnored {
		if ig == member {
			return true
		}
	}
	return false
}

// PrimaryKeys returns the key columns ordered by their declared order.
// Equal orders keep field order.
func (m *ObjectMapper) PrimaryKeys() []*Column {
	var keys []*Column
	for _, c := range m.Columns {
		if c.PrimaryKey {
			keys = append(keys, c)
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].PrimaryKeyOrder < keys[j].PrimaryKeyOrder
	})
	return keys
}

// Discriminator returns the inheritance discriminator column, if any
func (m *ObjectMapper) Discriminator() (*Column, bool) {
	for _, c := range m.Columns {
		if c.IsDiscriminator {
			return c, true
		}
	}
	return nil, false
}

// ResolveInheritance returns the mapping whose code matches code, falling
// back to the default mapping
func (m *ObjectMapper) ResolveInheritance(code interface{}) (InheritanceMapping, bool) {
	text := storageText(code)
	var def *InheritanceMapping
	for i, im := range m.Inheritance {
		if im.HasCode && im.Code == text {
			return im, true
		}
		if im.IsDefault && def == nil {
			def = &m.Inheritance[i]
		}
	}
	if def != nil {
		return *def, true
	}
	return InheritanceMapping{}, false
}

// Get reads the storage value of c from the struct value src
func (m *ObjectMapper) Get(src reflect.Value, c *Column) (interface{}, error) {
	return m.StorageValue(c, reflect.Indirect(src).FieldByIndex(c.Index).Interface())
}

// StorageValue converts a member value of c into the value bound for its column
func (m *ObjectMapper) StorageValue(c *Column, v interface{}) (interface{}, error) {
	if c.Mapper != nil {
		out, err := c.Mapper.Serialize(v)
		if err != nil {
			return nil, &MemberError{Type: m.TypeName, Member: c.Member, Err: err}
		}
		return out, nil
	}

	text := storageText(v)
	if c.Null != nil && text == c.Null.Value {
		return nil, nil
	}
	for _, vm := range c.Values {
		if vm.Orig == text {
			out, err := ParseTyped(vm.Value, vm.Type)
			if err != nil {
				return nil, &MemberError{Type: m.TypeName, Member: c.Member, Err: err}
			}
			return out, nil
		}
	}

	out, err := driverValue(v)
	if err != nil {
		return nil, &MemberError{Type: m.TypeName, Member: c.Member, Err: err}
	}
	return out, nil
}

// Set assigns a storage value to the member of c on the struct dst points to
func (m *ObjectMapper) Set(dst reflect.Value, c *Column, v interface{}) error {
	field := reflect.Indirect(dst).FieldByIndex(c.Index)

	if c.Mapper != nil {
		out, err := c.Mapper.Deserialize(v, field.Type())
		if err != nil {
			return &MemberError{Type: m.TypeName, Member: c.Member, Err: err}
		}
		if out == nil {
			field.Set(reflect.Zero(field.Type()))
		} else {
			field.Set(reflect.ValueOf(out))
		}
		return nil
	}

	if v == nil && c.Default != nil {
		def, err := c.Default.Parse()
		if err != nil {
			return &MemberError{Type: m.TypeName, Member: c.Member, Err: err}
		}
		v = def
	}

	if v != nil && len(c.Values) > 0 {
		text := storageText(v)
		for _, vm := range c.Values {
			if vm.Value == text {
				v = vm.Orig
				break
			}
		}
	}

	if c.Trimmable {
		v = trimValue(v)
	}

	if err := setValue(field, v); err != nil {
		return &MemberError{Type: m.TypeName, Member: c.Member, Err: err}
	}
	return nil
}

// Assign sets every named column on dst. Names without a column, including
// map-ignored members, are skipped.
func (m *ObjectMapper) Assign(dst reflect.Value, names []string, values []interface{}) error {
	for i, name := range names {
		c, ok := m.ColumnByName(name)
		if !ok {
			continue
		}
		if err := m.Set(dst, c, values[i]); err != nil {
			return err
		}
	}
	return nil
}

type objectBuilder struct {
	schema *Schema
	ext    *extension.TypeExtension
	om     *ObjectMapper
}

func (b *objectBuilder) build() error {
	om := b.om
	om.Table = om.Type.Name()

	if b.ext != nil {
		attrs := b.ext.Attributes
		if v, ok := attrs.Value(extension.TableName); ok {
			om.Table = v
		}
		om.Owner, _ = attrs.Value(extension.OwnerName)
		om.Database, _ = attrs.Value(extension.DatabaseName)

		if recs, ok := attrs.Get(extension.MapField); ok {
			for _, rec := range recs {
				orig, hasOrig := rec.Get(extension.OrigName)
				name, hasName := rec.Get(extension.MapName)
				if hasOrig && hasName {
					om.Renames[orig] = name
				}
			}
		}

		if recs, ok := attrs.Get(extension.InheritanceMapping); ok {
			for _, rec := range recs {
				im := InheritanceMapping{}
				im.Type, _ = rec.Get(extension.Type)
				im.Code, im.HasCode = rec.Get(extension.Code)
				im.CodeType, _ = rec.Get(extension.Code + extension.TypePostfix)
				if v, ok := rec.Get(extension.IsDefault); ok {
					im.IsDefault = extension.ParseBool(v)
				}
				om.Inheritance = append(om.Inheritance, im)
			}
		}
	}

	return b.walk(om.Type, nil, "")
}

func (b *objectBuilder) walk(t reflect.Type, index []int, prefix string) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		idx := append(append([]int{}, index...), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			if err := b.walk(f.Type, idx, prefix); err != nil {
				return err
			}
			continue
		}

		member := prefix + f.Name
		attrs := b.memberAttributes(member)

		if attrs != nil && extension.ParseBool(value(attrs, extension.MapIgnore)) {
			b.om.MapIgnored = append(b.om.MapIgnored, member)
			continue
		}
		if attrs != nil && attrs.Has(extension.Association) {
			b.addAssociation(member, f.Type, attrs)
			continue
		}
		if attrs != nil && attrs.Has(extension.Relation) {
			b.addRelation(member, attrs)
			continue
		}

		switch {
		case attrs != nil && attrs.Has(extension.MemberMapper), isScalar(f.Type):
			if err := b.addColumn(member, idx, f.Type, attrs); err != nil {
				return err
			}
		case f.Type.Kind() == reflect.Struct:
			if err := b.walk(f.Type, idx, member+"."); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *objectBuilder) memberAttributes(member string) extension.AttributeNameCollection {
	if b.ext == nil {
		return nil
	}
	m, ok := b.ext.Member(member)
	if !ok {
		return nil
	}
	return m.Attributes
}

func (b *objectBuilder) addColumn(member string, index []int, t reflect.Type, attrs extension.AttributeNameCollection) error {
	c := &Column{
		Member:          member,
		Name:            b.columnName(member, attrs),
		Index:           index,
		Type:            t,
		PrimaryKeyOrder: -1,
		Nullable:        t.Kind() == reflect.Ptr,
	}

	if attrs != nil {
		if v, ok := attrs.Value(extension.PrimaryKey); ok {
			c.PrimaryKey = true
			if n, err := strconv.Atoi(v); err == nil {
				c.PrimaryKeyOrder = n
			}
		}
		c.Identity = extension.ParseBool(value(attrs, extension.Identity))
		c.NonUpdatable = extension.ParseBool(value(attrs, extension.NonUpdatable))
		c.SqlIgnore = extension.ParseBool(value(attrs, extension.SqlIgnore))
		c.Trimmable = extension.ParseBool(value(attrs, extension.Trimmable))
		if v, ok := attrs.Value(extension.Nullable); ok {
			c.Nullable = extension.ParseBool(v)
		}
		c.Storage, _ = attrs.Value(extension.FieldStorage)
		c.IsDiscriminator = extension.ParseBool(value(attrs, extension.IsInheritanceDiscriminator))
		c.Default = scalar(attrs, extension.DefaultValue)
		c.Null = scalar(attrs, extension.NullValue)
		c.Values = valueMaps(attrs)

		if recs, ok := attrs.Get(extension.MemberMapper); ok {
			mapperType, _ := recs.First().Get(extension.MemberMapperType)
			mapper, err := b.schema.registry.Lookup(mapperType)
			if err != nil {
				return &MemberError{Type: b.om.TypeName, Member: member, Err: err}
			}
			c.Mapper = mapper
		}
	}

	// Value maps of the member's own type apply when the member declares none
	if len(c.Values) == 0 {
		if ext, ok := b.schema.list.Get(extension.TypeName(t)); ok {
			c.Values = typeValueMaps(ext)
		}
	}

	b.om.Columns = append(b.om.Columns, c)
	b.om.byMember[member] = c
	b.om.byName[strings.ToLower(c.Name)] = c
	return nil
}

func (b *objectBuilder) columnName(member string, attrs extension.AttributeNameCollection) string {
	if attrs != nil {
		if v, ok := attrs.Value(extension.MapField); ok {
			return v
		}
	}
	if v, ok := b.om.Renames[member]; ok {
		return v
	}
	return strings.ReplaceAll(member, ".", "_")
}

func (b *objectBuilder) addAssociation(member string, t reflect.Type, attrs extension.AttributeNameCollection) {
	rec := mustFirst(attrs, extension.Association)
	thisKey, _ := rec.Get(extension.ThisKey)
	otherKey, _ := rec.Get(extension.OtherKey)
	canBeNull, _ := rec.Get(extension.CanBeNull)

	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	kind := t.Kind()
	b.om.Associations = append(b.om.Associations, &Association{
		Member:    member,
		ThisKey:   extension.ParseKeys(thisKey),
		OtherKey:  extension.ParseKeys(otherKey),
		CanBeNull: extension.ParseBool(canBeNull),
		Many:      kind == reflect.Slice || kind == reflect.Array || kind == reflect.Map,
	})
}

func (b *objectBuilder) addRelation(member string, attrs extension.AttributeNameCollection) {
	rec := mustFirst(attrs, extension.Relation)
	rel := &Relation{Member: member}
	rel.DestinationType, _ = rec.Get(extension.DestinationType)
	rel.SlaveIndex = indexNames(rec, extension.SlaveIndex)
	rel.MasterIndex = indexNames(rec, extension.MasterIndex)
	b.om.Relations = append(b.om.Relations, rel)
}

func indexNames(rec *extension.AttributeExtension, name string) []string {
	recs, ok := rec.Attributes.Get(name)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		if n, ok := r.Get(extension.Name); ok {
			names = append(names, n)
		}
	}
	return names
}

func value(attrs extension.AttributeNameCollection, name string) string {
	v, _ := attrs.Value(name)
	return v
}

func mustFirst(attrs extension.AttributeNameCollection, name string) *extension.AttributeExtension {
	recs, _ := attrs.Get(name)
	if rec := recs.First(); rec != nil {
		return rec
	}
	return extension.NewAttributeExtension()
}

func scalar(attrs extension.AttributeNameCollection, name string) *Scalar {
	recs, ok := attrs.Get(name)
	if !ok || recs.First() == nil {
		return nil
	}
	rec := recs.First()
	s := &Scalar{Value: rec.Value()}
	s.Type, _ = rec.Get(extension.ValueKey + extension.TypePostfix)
	return s
}

// typeValueMaps collects the type-level maps of ext followed by the maps
// recorded on its enum constant members
func typeValueMaps(ext *extension.TypeExtension) []ValueMap {
	maps := valueMaps(ext.Attributes)
	for _, name := range ext.Members.Names() {
		m, _ := ext.Member(name)
		maps = append(maps, valueMaps(m.Attributes)...)
	}
	return maps
}

func valueMaps(attrs extension.AttributeNameCollection) []ValueMap {
	recs, ok := attrs.Get(extension.MapValue)
	if !ok {
		return nil
	}
	maps := make([]ValueMap, 0, len(recs))
	for _, rec := range recs {
		vm := ValueMap{}
		vm.Orig, _ = rec.Get(extension.OrigValue)
		vm.Value, _ = rec.Get(extension.ValueKey)
		vm.Type, _ = rec.Get(extension.ValueKey + extension.TypePostfix)
		maps = append(maps, vm)
	}
	return maps
}
