package fluent

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/fluentmap/internal/orm/extension"
)

type Status int

const (
	StatusActive Status = iota
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

type Address struct {
	Street string
	City   string
}

type Order struct {
	ID         int
	CustomerID int
	Region     string
	Total      float64
}

type Customer struct {
	ID        int
	Region    string
	Name      string
	Address   Address
	Manager   *Customer
	Orders    []Order
	LastOrder *Order
	Status    Status
	Payload   []byte
	secret    string
}

type VipCustomer struct {
	Customer
	Level int
}

func recoverError(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()
	fn()
	return nil
}

func memberValue(t *testing.T, ext *extension.TypeExtension, member, attr string) string {
	t.Helper()
	m, ok := ext.Member(member)
	require.True(t, ok, "member %s not configured", member)
	v, ok := m.Attributes.Value(attr)
	require.True(t, ok, "attribute %s not set on %s", attr, member)
	return v
}

func TestResolve(t *testing.T) {
	t.Run("direct member", func(t *testing.T) {
		p, err := ResolvePath[Customer]("Name")
		require.NoError(t, err)
		assert.Equal(t, "Name", p.Path)
		assert.False(t, p.IsNested())
		assert.Equal(t, reflect.TypeOf(""), p.Type)
	})

	t.Run("nested member", func(t *testing.T) {
		p, err := ResolvePath[Customer]("Address.City")
		require.NoError(t, err)
		assert.Equal(t, []string{"Address", "City"}, p.Segments)
		assert.True(t, p.IsNested())
	})

	t.Run("through pointer", func(t *testing.T) {
		p, err := ResolvePath[Customer]("Manager.Address.Street")
		require.NoError(t, err)
		assert.Equal(t, "Manager.Address.Street", p.Path)
	})

	t.Run("promoted member", func(t *testing.T) {
		_, err := ResolvePath[VipCustomer]("Name")
		assert.NoError(t, err)
	})

	invalid := map[string]string{
		"method call":     "Name.Len()",
		"indexer":         "Orders[0].ID",
		"unknown":         "Missing",
		"unexported":      "secret",
		"empty":           "",
		"empty segment":   "Address..City",
		"through slice":   "Orders.ID",
		"through scalar":  "Name.Length",
		"bad character":   "Na-me",
		"leading digit":   "1Name",
		"trailing period": "Address.",
	}
	for name, expr := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := ResolvePath[Customer](expr)
			require.Error(t, err)
			assert.True(t, IsInvalidExpression(err))
		})
	}

	t.Run("non struct", func(t *testing.T) {
		_, err := Resolve(reflect.TypeOf(0), "X")
		assert.True(t, IsInvalidExpression(err))
	})

	t.Run("builder panics immediately", func(t *testing.T) {
		err := recoverError(func() { New[Customer]().MapField("Orders[0]") })
		require.Error(t, err)
		assert.True(t, IsInvalidExpression(err))
		assert.Contains(t, err.Error(), "indexers")
	})
}

func TestMetadataTypeName(t *testing.T) {
	assert.Equal(t, "github.com/conduit-lang/fluentmap/internal/orm/fluent.Customer", extension.TypeName(reflect.TypeOf(&Customer{})))
	assert.Equal(t, "int", extension.TypeName(reflect.TypeOf(0)))
	assert.Equal(t, "[]string", extension.TypeName(reflect.TypeOf([]string{})))
}

func TestTableName(t *testing.T) {
	t.Run("name only", func(t *testing.T) {
		ext := New[Customer]().TableName("customers").Extension()
		v, ok := ext.Attributes.Value(extension.TableName)
		require.True(t, ok)
		assert.Equal(t, "customers", v)
		assert.False(t, ext.Attributes.Has(extension.OwnerName))
		assert.False(t, ext.Attributes.Has(extension.DatabaseName))
	})

	t.Run("last write wins per component", func(t *testing.T) {
		ext := New[Customer]().
			TableName("customers", Owner("dbo"), Database("crm")).
			TableName("clients", Owner("sales")).
			Extension()

		name, _ := ext.Attributes.Value(extension.TableName)
		owner, _ := ext.Attributes.Value(extension.OwnerName)
		db, _ := ext.Attributes.Value(extension.DatabaseName)
		assert.Equal(t, "clients", name)
		assert.Equal(t, "sales", owner)
		assert.Equal(t, "crm", db)

		c, _ := ext.Attributes.Get(extension.TableName)
		assert.Len(t, c, 1)
	})
}

func TestMapField(t *testing.T) {
	t.Run("direct member", func(t *testing.T) {
		ext := New[Customer]().
			MapField("Name", Name("customer_name"), Storage("name"), InheritanceDiscriminator(false)).
			Extension()

		assert.Equal(t, "customer_name", memberValue(t, ext, "Name", extension.MapField))
		assert.Equal(t, "name", memberValue(t, ext, "Name", extension.FieldStorage))
		assert.Equal(t, "False", memberValue(t, ext, "Name", extension.IsInheritanceDiscriminator))
		assert.False(t, ext.Attributes.Has(extension.MapField))
	})

	t.Run("options are independent", func(t *testing.T) {
		ext := New[Customer]().MapField("Name", Storage("name")).Extension()
		m, ok := ext.Member("Name")
		require.True(t, ok)
		assert.Equal(t, []string{extension.FieldStorage}, m.Attributes.Names())
	})

	t.Run("nested member is a type redirect", func(t *testing.T) {
		ext := New[Customer]().
			MapField("Address.City", Name("city"), Storage("cityField"), InheritanceDiscriminator(true)).
			MapField("Address.Street", Name("street")).
			Extension()

		_, ok := ext.Member("Address.City")
		assert.False(t, ok)
		assert.Equal(t, []string{extension.MapField}, ext.Attributes.Names())

		c, ok := ext.Attributes.Get(extension.MapField)
		require.True(t, ok)
		require.Len(t, c, 2)
		orig, _ := c[0].Get(extension.OrigName)
		mapName, _ := c[0].Get(extension.MapName)
		assert.Equal(t, "Address.City", orig)
		assert.Equal(t, "city", mapName)
		assert.ElementsMatch(t, []string{extension.OrigName, extension.MapName}, c[0].Values.Keys())
		orig, _ = c[1].Get(extension.OrigName)
		assert.Equal(t, "Address.Street", orig)
	})
}

func TestMemberIdentity(t *testing.T) {
	m := New[Customer]()
	a := m.Field("Name")
	b := m.Field("Name")
	require.Same(t, a.Member(), b.Member())

	a.Trimmable()
	v, ok := b.Member().Attributes.Value(extension.Trimmable)
	require.True(t, ok)
	assert.Equal(t, "True", v)
	assert.Equal(t, 1, m.Extension().Members.Len())
}

func TestPrimaryKey(t *testing.T) {
	ext := New[Customer]().
		PrimaryKey("ID").
		PrimaryKey("Region", 3).
		PrimaryKey("Name", 3).
		Extension()

	assert.Equal(t, "-1", memberValue(t, ext, "ID", extension.PrimaryKey))
	assert.Equal(t, "3", memberValue(t, ext, "Region", extension.PrimaryKey))
	assert.Equal(t, "3", memberValue(t, ext, "Name", extension.PrimaryKey))
}

func TestFlags(t *testing.T) {
	ext := New[Customer]().
		NonUpdatable("ID").
		Identity("ID").
		Identity("ID").
		Trimmable("Name").
		SqlIgnore("Region").
		MapIgnore("Payload").
		Nullable("Manager").
		Extension()

	assert.Equal(t, "True", memberValue(t, ext, "ID", extension.NonUpdatable))
	assert.Equal(t, "True", memberValue(t, ext, "ID", extension.Identity))
	assert.Equal(t, "True", memberValue(t, ext, "Name", extension.Trimmable))
	assert.Equal(t, "True", memberValue(t, ext, "Region", extension.SqlIgnore))
	assert.Equal(t, "True", memberValue(t, ext, "Payload", extension.MapIgnore))
	assert.Equal(t, "True", memberValue(t, ext, "Manager", extension.Nullable))

	m, _ := ext.Member("ID")
	c, _ := m.Attributes.Get(extension.Identity)
	assert.Len(t, c, 1)

	ext = New[Customer]().SqlIgnore("Region", false).MapIgnore("Name", false).Extension()
	assert.Equal(t, "False", memberValue(t, ext, "Region", extension.SqlIgnore))
	assert.Equal(t, "False", memberValue(t, ext, "Name", extension.MapIgnore))
}

func TestMapValue(t *testing.T) {
	t.Run("field values", func(t *testing.T) {
		ext := New[Customer]().
			Field("Status").
			MapValue(StatusActive, "A", "act").
			MapValue(StatusClosed, "C").
			Extension()

		m, ok := ext.Member("Status")
		require.True(t, ok)
		c, _ := m.Attributes.Get(extension.MapValue)
		require.Len(t, c, 3)

		type rec struct{ Orig, Value, Type string }
		var got []rec
		for _, r := range c {
			orig, _ := r.Get(extension.OrigValue)
			val, _ := r.Get(extension.ValueKey)
			typ, _ := r.Get(extension.ValueKey + extension.TypePostfix)
			got = append(got, rec{orig, val, typ})
		}
		want := []rec{
			{"Active", "A", "string"},
			{"Active", "act", "string"},
			{"Closed", "C", "string"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("map values mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("enum constant", func(t *testing.T) {
		ext := New[Customer]().MapEnumValue(StatusClosed, 9).Extension()
		m, ok := ext.Member("Closed")
		require.True(t, ok)
		c, _ := m.Attributes.Get(extension.MapValue)
		require.Len(t, c, 1)
		v, _ := c[0].Get(extension.ValueKey)
		typ, _ := c[0].Get(extension.ValueKey + extension.TypePostfix)
		assert.Equal(t, "9", v)
		assert.Equal(t, "int", typ)
	})

	t.Run("enum type map", func(t *testing.T) {
		m := New[Status]().MapEnumValue(StatusActive, "A").MapEnumValue(StatusClosed, "C")
		assert.Equal(t, reflect.TypeOf(StatusActive), m.Type())
		ext := m.Extension()
		assert.Equal(t, extension.TypeName(reflect.TypeOf(StatusActive)), ext.Name)
		assert.Equal(t, []string{"Active", "Closed"}, ext.Members.Names())

		err := recoverError(func() { New[Status]().Field("Value") })
		assert.True(t, IsInvalidExpression(err))
	})

	t.Run("type level", func(t *testing.T) {
		ext := New[Customer]().MapValue("vip", 1.5, 2.0).Extension()
		c, ok := ext.Attributes.Get(extension.MapValue)
		require.True(t, ok)
		require.Len(t, c, 2)
		v, _ := c[1].Get(extension.ValueKey)
		typ, _ := c[1].Get(extension.ValueKey + extension.TypePostfix)
		assert.Equal(t, "2", v)
		assert.Equal(t, "float64", typ)
	})
}

func TestScalarValues(t *testing.T) {
	ext := New[Customer]().
		DefaultValue("Region", "north").
		NullValue("ID", -1).
		DefaultValue("Region", "south").
		Extension()

	assert.Equal(t, "south", memberValue(t, ext, "Region", extension.DefaultValue))
	assert.Equal(t, "-1", memberValue(t, ext, "ID", extension.NullValue))

	m, _ := ext.Member("ID")
	c, _ := m.Attributes.Get(extension.NullValue)
	typ, _ := c.First().Get(extension.ValueKey + extension.TypePostfix)
	assert.Equal(t, "int", typ)
}

func TestAssociation(t *testing.T) {
	t.Run("to many round trip", func(t *testing.T) {
		ext := New[Customer]().
			Association("Orders", true, "ID", "Region").
			ToMany("CustomerID", "Region").
			Extension()

		m, ok := ext.Member("Orders")
		require.True(t, ok)
		c, _ := m.Attributes.Get(extension.Association)
		require.Len(t, c, 1)

		thisKey, _ := c[0].Get(extension.ThisKey)
		otherKey, _ := c[0].Get(extension.OtherKey)
		canBeNull, _ := c[0].Get(extension.CanBeNull)
		assert.Equal(t, []string{"ID", "Region"}, extension.ParseKeys(thisKey))
		assert.Equal(t, []string{"CustomerID", "Region"}, extension.ParseKeys(otherKey))
		assert.Equal(t, "True", canBeNull)
	})

	t.Run("to one", func(t *testing.T) {
		ext := New[Customer]().
			Field("LastOrder").
			Association(false, "ID").
			ToOne("CustomerID").
			Extension()

		m, _ := ext.Member("LastOrder")
		c, _ := m.Attributes.Get(extension.Association)
		canBeNull, _ := c[0].Get(extension.CanBeNull)
		assert.Equal(t, "False", canBeNull)
	})

	t.Run("nullable shortcut", func(t *testing.T) {
		ext := New[Customer]().
			AssociationNullable("Manager", "ID").
			ToOne("ID").
			Extension()

		m, _ := ext.Member("Manager")
		c, _ := m.Attributes.Get(extension.Association)
		canBeNull, _ := c[0].Get(extension.CanBeNull)
		assert.Equal(t, "True", canBeNull)
	})

	t.Run("re-association replaces", func(t *testing.T) {
		m := New[Customer]()
		m.Association("Orders", true, "ID").ToMany("CustomerID")
		m.Association("Orders", false, "Region").ToMany("Region")

		member, _ := m.Extension().Member("Orders")
		c, _ := member.Attributes.Get(extension.Association)
		require.Len(t, c, 1)
		thisKey, _ := c[0].Get(extension.ThisKey)
		assert.Equal(t, "Region", thisKey)
	})

	t.Run("pending association records nothing", func(t *testing.T) {
		m := New[Customer]()
		m.Association("Orders", true, "ID")
		_, ok := m.Extension().Member("Orders")
		assert.False(t, ok)
	})

	t.Run("multiplicity mismatch", func(t *testing.T) {
		err := recoverError(func() {
			New[Customer]().Association("Orders", true, "ID").ToOne("CustomerID")
		})
		assert.True(t, IsInvalidExpression(err))

		err = recoverError(func() {
			New[Customer]().Association("LastOrder", true, "ID").ToMany("CustomerID")
		})
		assert.True(t, IsInvalidExpression(err))
	})

	t.Run("other key validated against associated type", func(t *testing.T) {
		err := recoverError(func() {
			New[Customer]().Association("Orders", true, "ID").ToMany("Name")
		})
		assert.True(t, IsInvalidExpression(err))
	})
}

func TestRelation(t *testing.T) {
	ext := New[Customer]().
		Relation("Orders", []string{"", "CustomerID", "  "}, []string{"ID", "\t"}).
		Relation("Manager", nil, nil).
		Extension()

	m, _ := ext.Member("Orders")
	c, _ := m.Attributes.Get(extension.Relation)
	require.Len(t, c, 1)
	dest, _ := c[0].Get(extension.DestinationType)
	assert.Equal(t, extension.TypeName(reflect.TypeOf(Order{})), dest)

	slave, ok := c[0].Attributes.Get(extension.SlaveIndex)
	require.True(t, ok)
	require.Len(t, slave, 1)
	name, _ := slave[0].Get(extension.Name)
	assert.Equal(t, "CustomerID", name)

	master, _ := c[0].Attributes.Get(extension.MasterIndex)
	require.Len(t, master, 1)

	m, _ = ext.Member("Manager")
	c, _ = m.Attributes.Get(extension.Relation)
	dest, _ = c[0].Get(extension.DestinationType)
	assert.Equal(t, extension.TypeName(reflect.TypeOf(Customer{})), dest)
	assert.False(t, c[0].Attributes.Has(extension.SlaveIndex))
}

func TestInheritanceMapping(t *testing.T) {
	ext := New[Customer]().
		InheritanceMapping(reflect.TypeOf(Customer{}), Code(0), IsDefault(true)).
		InheritanceMapping(reflect.TypeOf(VipCustomer{}), Code(1)).
		InheritanceMapping(reflect.TypeOf(VipCustomer{}), IsDefault(false)).
		Extension()

	c, ok := ext.Attributes.Get(extension.InheritanceMapping)
	require.True(t, ok)
	require.Len(t, c, 3)

	typ, _ := c[1].Get(extension.Type)
	code, _ := c[1].Get(extension.Code)
	codeType, _ := c[1].Get(extension.Code + extension.TypePostfix)
	assert.Equal(t, extension.TypeName(reflect.TypeOf(VipCustomer{})), typ)
	assert.Equal(t, "1", code)
	assert.Equal(t, "int", codeType)
	_, hasDefault := c[1].Get(extension.IsDefault)
	assert.False(t, hasDefault)

	_, hasCode := c[2].Get(extension.Code)
	assert.False(t, hasCode)
}

type upperMapper struct{}

func TestMemberMapper(t *testing.T) {
	ext := New[Customer]().
		MemberMapper("Payload", reflect.TypeOf([]byte{}), reflect.TypeOf(upperMapper{})).
		Extension()

	m, _ := ext.Member("Payload")
	c, _ := m.Attributes.Get(extension.MemberMapper)
	require.Len(t, c, 1)
	memberType, _ := c[0].Get(extension.MemberType)
	mapperType, _ := c[0].Get(extension.MemberMapperType)
	assert.Equal(t, "[]uint8", memberType)
	assert.Equal(t, extension.TypeName(reflect.TypeOf(upperMapper{})), mapperType)
}

func TestMapTo(t *testing.T) {
	t.Run("replaces the previous tree", func(t *testing.T) {
		list := extension.NewList()
		first := New[Customer]().TableName("old").PrimaryKey("ID")
		first.MapTo(list)

		second := New[Customer]().TableName("new")
		second.MapTo(list)

		got, ok := list.Get(extension.TypeName(reflect.TypeOf(Customer{})))
		require.True(t, ok)
		assert.Same(t, second.Extension(), got)
		_, hasPK := got.Member("ID")
		assert.False(t, hasPK)
		assert.Equal(t, 1, list.Len())
	})

	t.Run("re-merging the same tree is stable", func(t *testing.T) {
		list := extension.NewList()
		m := New[Customer]().TableName("customers")
		m.MapTo(list)
		m.MapTo(list)
		assert.Equal(t, 1, list.Len())
	})

	t.Run("configure keeps discovery order", func(t *testing.T) {
		list := extension.NewList()
		Configure(list, Extensions(New[Order](), New[Customer]()))
		assert.Equal(t, []string{
			extension.TypeName(reflect.TypeOf(Order{})),
			extension.TypeName(reflect.TypeOf(Customer{})),
		}, list.Names())
	})
}

func TestCatalog(t *testing.T) {
	built := 0
	catalog := NewCatalog()
	catalog.Register("crm",
		func() Mapper { built++; return New[Customer]().TableName("customers") },
		func() Mapper { built++; return New[Order]().TableName("orders") },
	)
	catalog.Register("empty")

	assert.Equal(t, []string{"crm", "empty"}, catalog.Units())

	cache := NewCache(catalog)
	first := cache.Get("crm")
	require.Len(t, first, 2)
	assert.Equal(t, 2, built)

	second := cache.Get("crm")
	assert.Same(t, first[0], second[0])
	assert.Equal(t, 2, built)

	assert.Empty(t, cache.Get("empty"))

	cache.Reset()
	third := cache.Get("crm")
	assert.Equal(t, 4, built)
	assert.NotSame(t, first[0], third[0])

	list := extension.NewList()
	cache.ConfigureUnit(list, "crm")
	assert.Equal(t, 2, list.Len())

	mappers := catalog.Build("crm")
	require.Len(t, mappers, 2)
	assert.Equal(t, reflect.TypeOf(Customer{}), mappers[0].Type())
	assert.Equal(t, reflect.TypeOf(Order{}), mappers[1].Type())
}
