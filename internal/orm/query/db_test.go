package query

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/fluentmap/internal/orm/fluent"
	"github.com/conduit-lang/fluentmap/internal/orm/mapping"
)

type Post struct {
	ID      int
	Title   string
	Content string
	Status  string
}

func newSQLMock(t *testing.T, mappers ...fluent.Mapper) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return New(conn, mapping.NewSchema(configured(mappers...)), Postgres), mock
}

func postMap() *fluent.Map[Post] {
	return fluent.New[Post]().
		TableName("posts").
		PrimaryKey("ID").
		Identity("ID").
		MapField("Title", fluent.Name("title")).
		MapField("Content", fluent.Name("content")).
		MapField("Status", fluent.Name("status")).
		MapValue("draft", "D").
		Map
}

func TestInsertReturningIdentity(t *testing.T) {
	db, mock := newSQLMock(t, postMap())

	mock.ExpectQuery(`INSERT INTO "posts" ("title", "content", "status") VALUES ($1, $2, $3) RETURNING "ID"`).
		WithArgs("Hello", "World", "D").
		WillReturnRows(sqlmock.NewRows([]string{"ID"}).AddRow(int64(5)))

	post := &Post{Title: "Hello", Content: "World", Status: "draft"}
	n, err := Must(For[Post](db)).Insert(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 5, post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLastInsertID(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer conn.Close()
	db := New(conn, mapping.NewSchema(configured(postMap())), SQLite)

	mock.ExpectExec(`INSERT INTO "posts" ("title", "content", "status") VALUES (?, ?, ?)`).
		WithArgs("a", "b", "published").
		WillReturnResult(sqlmock.NewResult(9, 1))

	post := &Post{Title: "a", Content: "b", Status: "published"}
	_, err = Must(For[Post](db)).Insert(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, 9, post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRowsAffectedError(t *testing.T) {
	ctx := context.Background()
	countErr := errors.New("row count unavailable")

	t.Run("exec", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectExec(`DELETE FROM posts`).WillReturnResult(sqlmock.NewErrorResult(countErr))

		n, err := db.Exec(ctx, "DELETE FROM posts")
		require.Error(t, err)
		assert.ErrorIs(t, err, countErr)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert", func(t *testing.T) {
		conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer conn.Close()
		db := New(conn, mapping.NewSchema(configured(postMap())), SQLite)

		mock.ExpectExec(`INSERT INTO "posts" ("title", "content", "status") VALUES (?, ?, ?)`).
			WithArgs("a", "b", "D").
			WillReturnResult(sqlmock.NewErrorResult(countErr))

		_, err = Must(For[Post](db)).Insert(ctx, &Post{Title: "a", Content: "b", Status: "draft"})
		assert.ErrorIs(t, err, countErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdate(t *testing.T) {
	db, mock := newSQLMock(t, postMap())

	mock.ExpectExec(`UPDATE "posts" SET "title" = $1, "content" = $2, "status" = $3 WHERE "ID" = $4`).
		WithArgs("T", "C", "D", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := Must(For[Post](db)).Update(context.Background(), &Post{ID: 3, Title: "T", Content: "C", Status: "draft"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	db, mock := newSQLMock(t, postMap())

	mock.ExpectExec(`DELETE FROM "posts" WHERE "ID" = $1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := Must(For[Post](db)).Delete(context.Background(), &Post{ID: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectMapsValuesBack(t *testing.T) {
	db, mock := newSQLMock(t, postMap())

	mock.ExpectQuery(`SELECT "ID", "title", "content", "status" FROM "posts" WHERE "status" = $1 OR "ID" IN ($2, $3)`).
		WithArgs("D", int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"ID", "title", "content", "status"}).
			AddRow(1, "a", "b", "D").
			AddRow(2, "c", "d", "published"))

	posts, err := Must(For[Post](db)).Select(context.Background(),
		Eq("Status", "draft"),
		Condition{Field: "ID", Operator: OpIn, Value: []interface{}{1, 2}, Or: true},
	)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "draft", posts[0].Status)
	assert.Equal(t, "published", posts[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	db, mock := newSQLMock(t, postMap())

	mock.ExpectQuery(`SELECT COUNT(*) FROM "posts" WHERE "title" IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := Must(For[Post](db)).Count(context.Background(), IsNull("Title"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandWrittenCommands(t *testing.T) {
	ctx := context.Background()
	db, mock := newSQLMock(t, postMap())

	mock.ExpectExec(`UPDATE posts SET status = $1`).
		WithArgs("D").
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectQuery(`SELECT max(id) FROM posts`).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(12)))
	mock.ExpectQuery(`SELECT id, title FROM posts WHERE id = $1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}))

	n, err := db.Exec(ctx, `UPDATE posts SET status = $1`, "D")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	v, err := db.Scalar(ctx, `SELECT max(id) FROM posts`)
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	_, err = QueryRow[Post](ctx, db, `SELECT id, title FROM posts WHERE id = $1`, 1)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		db, mock := newSQLMock(t, postMap())
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "posts" WHERE "ID" = $1`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := db.WithTransaction(ctx, func(tx *DB) error {
			_, err := Must(For[Post](tx)).Delete(ctx, &Post{ID: 1})
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		db, mock := newSQLMock(t, postMap())
		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := db.WithTransaction(ctx, func(tx *DB) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDBErrorsAreConverted(t *testing.T) {
	db, mock := newSQLMock(t, postMap())

	mock.ExpectExec(`DELETE FROM "posts" WHERE "ID" = $1`).
		WithArgs(int64(1)).
		WillReturnError(&pgconn.PgError{Code: "23503", Detail: "Key (id)=(1) is still referenced."})

	_, err := Must(For[Post](db)).Delete(context.Background(), &Post{ID: 1})
	assert.True(t, IsForeignKeyViolation(err))
	assert.Contains(t, err.Error(), "still referenced")
}

func TestConvertDBError(t *testing.T) {
	assert.Nil(t, ConvertDBError(nil))
	assert.Equal(t, ErrNotFound, ConvertDBError(sql.ErrNoRows))

	err := ConvertDBError(&pgconn.PgError{Code: "23505", Detail: "Key (email)=(a@b.c) already exists."})
	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.Contains(t, err.Error(), "Key (email)")

	err = ConvertDBError(&pgconn.PgError{Code: "23514", Detail: "Check constraint failed"})
	assert.ErrorIs(t, err, ErrCheckViolation)

	err = ConvertDBError(&pgconn.PgError{Code: "23502", ColumnName: "title"})
	assert.ErrorIs(t, err, ErrNotNullViolation)
	assert.Contains(t, err.Error(), "title")

	pgErr := &pgconn.PgError{Code: "99999", Message: "Unknown error"}
	assert.Equal(t, error(pgErr), ConvertDBError(pgErr))

	err = ConvertDBError(sqliteError{code: 2067, msg: "UNIQUE constraint failed: posts.title"})
	assert.ErrorIs(t, err, ErrUniqueViolation)

	err = ConvertDBError(errors.New("FOREIGN KEY constraint failed"))
	assert.ErrorIs(t, err, ErrForeignKeyViolation)

	generic := errors.New("generic error")
	assert.Equal(t, generic, ConvertDBError(generic))
}

type sqliteError struct {
	code int
	msg  string
}

func (e sqliteError) Error() string { return e.msg }
func (e sqliteError) Code() int     { return e.code }

func TestDialect(t *testing.T) {
	d, err := DialectByName("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, "$3", d.Placeholder(3))
	assert.Equal(t, `"weird""name"`, d.Quote(`weird"name`))

	d, err = DialectByName("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, "?", d.Placeholder(3))
	assert.False(t, d.Returning())

	_, err = DialectByName("oracle")
	assert.Error(t, err)
}

func TestConditionToSQL(t *testing.T) {
	identity := func(v interface{}) (interface{}, error) { return v, nil }

	tests := []struct {
		name     string
		cond     Condition
		expected string
		args     int
	}{
		{"equal", Eq("status", "published"), "status = $1", 1},
		{"not equal", Where("status", OpNotEqual, "x"), "status != $1", 1},
		{"greater", Where("n", OpGreaterThan, 1), "n > $1", 1},
		{"like", Where("t", OpLike, "a%"), "t LIKE $1", 1},
		{"in", In("id", 1, 2, 3), "id IN ($1, $2, $3)", 3},
		{"empty in", In("id"), "1 = 0", 0},
		{"empty not in", Where("id", OpNotIn, []interface{}{}), "1 = 1", 0},
		{"is null", IsNull("deleted"), "deleted IS NULL", 0},
		{"is not null", Where("deleted", OpIsNotNull, nil), "deleted IS NOT NULL", 0},
		{"between", Between("n", 1, 9), "n BETWEEN $1 AND $2", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &params{dialect: Postgres}
			got, err := conditionToSQL(tt.cond, tt.cond.Field, p, identity)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Len(t, p.args, tt.args)
		})
	}

	t.Run("bad in value", func(t *testing.T) {
		_, err := conditionToSQL(Where("id", OpIn, 1), "id", &params{dialect: Postgres}, identity)
		assert.Error(t, err)
	})

	t.Run("bad between value", func(t *testing.T) {
		_, err := conditionToSQL(Where("n", OpBetween, []interface{}{1}), "n", &params{dialect: Postgres}, identity)
		assert.Error(t, err)
	})

	assert.Equal(t, "NOT IN", OpNotIn.String())
	assert.Equal(t, "UNKNOWN", Operator(99).String())
}
