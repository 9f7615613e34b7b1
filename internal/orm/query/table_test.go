package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/fluentmap/internal/orm/extension"
	"github.com/conduit-lang/fluentmap/internal/orm/fluent"
	"github.com/conduit-lang/fluentmap/internal/orm/mapping"
	"github.com/conduit-lang/fluentmap/internal/testing/mockdb"
)

type Item struct {
	ID     int
	Field1 int
	Field2 string
	Note   string
	Cache  string
}

type NonUpdatableRow struct {
	ID     int
	Field1 int
}

type IgnoreRow struct {
	Field1 int
	Field2 int
}

type TrimRow struct {
	ID   int
	Code string
}

func newMockDB(t *testing.T, mock *mockdb.DB, mappers ...fluent.Mapper) *DB {
	t.Helper()
	list := extension.NewList()
	fluent.Configure(list, fluent.Extensions(mappers...))
	conn := mock.Open()
	t.Cleanup(func() { conn.Close() })
	return New(conn, mapping.NewSchema(list), Postgres)
}

func itemMap() *fluent.Map[Item] {
	return fluent.New[Item]().
		PrimaryKey("ID").
		Identity("ID").
		SqlIgnore("Note").
		MapIgnore("Cache")
}

func TestSelectFiltersByField(t *testing.T) {
	ctx := context.Background()
	mock := mockdb.New().NewReader("ID", "Field1", "Field2").NewRow(1, 10, "a")
	db := newMockDB(t, mock, itemMap())

	items, err := Must(For[Item](db)).Select(ctx, Eq("Field1", 10))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, Item{ID: 1, Field1: 10, Field2: "a"}, items[0])

	cmd := mock.Command(0)
	assert.Equal(t, `SELECT "ID", "Field1", "Field2" FROM "Item" WHERE "Field1" = $1`, cmd.Text)
	mockdb.AssertCommand(t, cmd).ParamCount(1).HasNoField("Note").HasNoField("Cache")
	assert.Equal(t, int64(10), cmd.Parameters[0].Value)
	assert.NoError(t, mock.Verify())
}

func TestSelectByKeyUsesPrimaryKey(t *testing.T) {
	ctx := context.Background()
	mock := mockdb.New().NewReader("ID", "Field1", "Field2").NewRow(1, 2, "x")
	db := newMockDB(t, mock, itemMap())

	item, err := Must(For[Item](db)).SelectByKey(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, item.ID)

	mockdb.AssertCommand(t, mock.Command(0)).
		HasTable("Item").
		HasField("ID").
		ParamCount(1)
	assert.NoError(t, mock.Verify())
}

func TestSelectByKeyNotFound(t *testing.T) {
	mock := mockdb.New().NewReader("ID", "Field1", "Field2")
	db := newMockDB(t, mock, itemMap())

	_, err := Must(For[Item](db)).SelectByKey(context.Background(), 99)
	assert.True(t, IsNotFound(err))
}

func TestInsertSkipsIgnoredAndIdentity(t *testing.T) {
	ctx := context.Background()
	mock := mockdb.New().NewNonQuery()
	db := New(mock.Open(), mapping.NewSchema(configured(itemMap())), SQLite)

	_, err := Must(For[Item](db)).Insert(ctx, &Item{ID: 5, Field1: 1, Field2: "b", Note: "n", Cache: "c"})
	require.NoError(t, err)

	cmd := mock.Command(0)
	assert.Equal(t, `INSERT INTO "Item" ("Field1", "Field2") VALUES (?, ?)`, cmd.Text)
	mockdb.AssertCommand(t, cmd).
		ParamCount(2).
		HasField("Field1").
		HasField("Field2").
		HasNoField("ID").
		HasNoField("Note").
		HasNoField("Cache")
}

func TestNonUpdatableInsert(t *testing.T) {
	mock := mockdb.New().NewNonQuery()
	db := newMockDB(t, mock, fluent.New[NonUpdatableRow]().PrimaryKey("ID").NonUpdatable("ID"))

	_, err := Must(For[NonUpdatableRow](db)).Insert(context.Background(), &NonUpdatableRow{ID: 1, Field1: 2})
	require.NoError(t, err)
	mockdb.AssertCommand(t, mock.Command(0)).ParamCount(1).HasNoField("ID")
}

func TestIgnoreInsert(t *testing.T) {
	tests := []struct {
		name   string
		mapper *fluent.Map[IgnoreRow]
	}{
		{"sql ignore", fluent.New[IgnoreRow]().SqlIgnore("Field2")},
		{"map ignore", fluent.New[IgnoreRow]().MapIgnore("Field2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mock := mockdb.New().NewNonQuery()
			db := newMockDB(t, mock, tt.mapper)
			table := Must(For[IgnoreRow](db))

			_, err := table.Insert(ctx, &IgnoreRow{Field1: 1, Field2: 2})
			require.NoError(t, err)
			mockdb.AssertCommand(t, mock.Command(0)).ParamCount(1).HasNoField("Field2")

			_, err = table.InsertValues(ctx, map[string]interface{}{"Field1": 1, "Field2": 2})
			assert.True(t, IsIgnoredField(err))
			assert.NoError(t, mock.Verify())
		})
	}
}

func TestIgnoreOnRead(t *testing.T) {
	ctx := context.Background()

	t.Run("sql ignore is set by hand-written queries", func(t *testing.T) {
		mock := mockdb.New().NewReader("Field1", "Field2").NewRow(1, 2)
		db := newMockDB(t, mock, fluent.New[IgnoreRow]().SqlIgnore("Field2"))

		rows, err := Query[IgnoreRow](ctx, db, "SELECT Field1, Field2 FROM IgnoreRow")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, 2, rows[0].Field2)
	})

	t.Run("map ignore is never set", func(t *testing.T) {
		mock := mockdb.New().NewReader("Field1", "Field2").NewRow(1, 2)
		db := newMockDB(t, mock, fluent.New[IgnoreRow]().MapIgnore("Field2"))

		row, err := QueryRow[IgnoreRow](ctx, db, "SELECT Field1, Field2 FROM IgnoreRow")
		require.NoError(t, err)
		assert.Equal(t, 0, row.Field2)
		assert.Equal(t, 1, row.Field1)
	})

	t.Run("generated select leaves ignored columns out", func(t *testing.T) {
		mock := mockdb.New().NewReader("Field1").NewRow(1)
		db := newMockDB(t, mock, fluent.New[IgnoreRow]().SqlIgnore("Field2"))

		_, err := Must(For[IgnoreRow](db)).Select(ctx)
		require.NoError(t, err)
		mockdb.AssertCommand(t, mock.Command(0)).HasField("Field1").HasNoField("Field2")
	})

	t.Run("ignored field in condition", func(t *testing.T) {
		db := newMockDB(t, mockdb.New(), fluent.New[IgnoreRow]().SqlIgnore("Field2"))
		_, _, err := Must(For[IgnoreRow](db)).SelectSQL(Eq("Field2", 1))
		assert.True(t, IsIgnoredField(err))
	})
}

func TestTrimmable(t *testing.T) {
	mock := mockdb.New().NewReader("ID", "Code").NewRow(1, "test     ")
	db := newMockDB(t, mock, fluent.New[TrimRow]().PrimaryKey("ID").Trimmable("Code"))

	row, err := Must(For[TrimRow](db)).SelectByKey(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "test", row.Code)
}

func TestRenames(t *testing.T) {
	mock := mockdb.New().NewReader("id", "field_one").NewRow(3, 4)
	db := newMockDB(t, mock, fluent.New[NonUpdatableRow]().
		TableName("rows", fluent.Owner("app")).
		PrimaryKey("ID").
		MapField("ID", fluent.Name("id")).
		MapField("Field1", fluent.Name("field_one")),
	)

	row, err := Must(For[NonUpdatableRow](db)).SelectByKey(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, NonUpdatableRow{ID: 3, Field1: 4}, *row)

	cmd := mock.Command(0)
	assert.Equal(t, `SELECT "id", "field_one" FROM "app"."rows" WHERE "id" = $1`, cmd.Text)
	mockdb.AssertCommand(t, cmd).HasTable("rows").HasNoField("Field1")
}

func TestScriptedErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("overrun", func(t *testing.T) {
		db := newMockDB(t, mockdb.New(), itemMap())
		_, err := Must(For[Item](db)).Delete(ctx, &Item{ID: 1})
		assert.True(t, mockdb.IsNoMoreScriptedCommands(err))
	})

	t.Run("no primary key", func(t *testing.T) {
		db := newMockDB(t, mockdb.New(), fluent.New[IgnoreRow]())
		_, err := Must(For[IgnoreRow](db)).Delete(ctx, &IgnoreRow{})
		assert.ErrorIs(t, err, ErrNoPrimaryKey)
	})

	t.Run("key count", func(t *testing.T) {
		db := newMockDB(t, mockdb.New(), itemMap())
		_, err := Must(For[Item](db)).SelectByKey(ctx, 1, 2)
		assert.ErrorIs(t, err, ErrKeyCount)
	})

	t.Run("unknown field", func(t *testing.T) {
		db := newMockDB(t, mockdb.New(), itemMap())
		_, err := Must(For[Item](db)).Select(ctx, Eq("Missing", 1))
		assert.ErrorIs(t, err, ErrFieldNotFound)
	})
}

func configured(mappers ...fluent.Mapper) *extension.List {
	list := extension.NewList()
	fluent.Configure(list, fluent.Extensions(mappers...))
	return list
}
