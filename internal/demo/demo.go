// Package demo holds a small library catalogue mapped with the fluent
// builder. The CLI describes it and the tests run it against SQLite.
package demo

import (
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/fluentmap/internal/orm/extension"
	"github.com/conduit-lang/fluentmap/internal/orm/fluent"
	"github.com/conduit-lang/fluentmap/internal/orm/mapping"
)

// Unit is the catalog unit the demo maps are registered under
const Unit = "github.com/conduit-lang/fluentmap/internal/demo"

// Genre classifies a book
type Genre int

const (
	GenreUnknown Genre = iota
	GenreFiction
	GenreHistory
	GenreScience
)

var genreNames = map[Genre]string{
	GenreUnknown: "Unknown",
	GenreFiction: "Fiction",
	GenreHistory: "History",
	GenreScience: "Science",
}

func (g Genre) String() string {
	if s, ok := genreNames[g]; ok {
		return s
	}
	return "Unknown"
}

// UnmarshalText restores a genre from its String form
func (g *Genre) UnmarshalText(text []byte) error {
	for k, v := range genreNames {
		if v == string(text) {
			*g = k
			return nil
		}
	}
	return fmt.Errorf("unknown genre %q", text)
}

// Author writes books
type Author struct {
	ID      int64
	Name    string
	Country string
	Books   []Book
}

// Dimensions are stored flattened into the books table
type Dimensions struct {
	Width  float64
	Height float64
}

// Book is the central entity of the catalogue
type Book struct {
	ID         int64
	AuthorID   int64
	ISBN       string
	Title      string
	Genre      Genre
	Published  time.Time
	Price      float64
	Size       Dimensions
	Tags       []string
	Author     *Author
	Revision   int
	Rank       int
}

// Review is keyed by book and reviewer
type Review struct {
	BookID   int64
	Reviewer string
	Rating   int
	Body     string
	Book     *Book
}

// AuthorMap configures Author
func AuthorMap() *fluent.Map[Author] {
	return fluent.New[Author]().
		TableName("authors").
		PrimaryKey("ID").
		Identity("ID").
		Trimmable("Country").
		DefaultValue("Country", "unknown").
		Association("Books", false, "ID").ToMany("AuthorID").
		Map
}

// BookMap configures Book
func BookMap() *fluent.Map[Book] {
	return fluent.New[Book]().
		TableName("books").
		PrimaryKey("ID").
		Identity("ID").
		NonUpdatable("Revision").
		Nullable("Published").
		SqlIgnore("Rank").
		MemberMapper("Tags", reflect.TypeOf([]string{}), reflect.TypeOf(mapping.GobMapper{})).
		MapField("Size.Width", fluent.Name("width_mm")).Map.
		MapField("Size.Height", fluent.Name("height_mm")).Map.
		MapField("Genre", fluent.Name("genre_code")).Map.
		AssociationNullable("Author", "AuthorID").ToOne("ID").
		Map
}

// GenreMap stores genres as one-letter codes wherever a Genre column is mapped
func GenreMap() *fluent.Map[Genre] {
	return fluent.New[Genre]().
		MapEnumValue(GenreFiction, "F").
		MapEnumValue(GenreHistory, "H").
		MapEnumValue(GenreScience, "S").
		MapEnumValue(GenreUnknown, "?")
}

// ReviewMap configures Review
func ReviewMap() *fluent.Map[Review] {
	return fluent.New[Review]().
		TableName("reviews").
		PrimaryKey("BookID", 0).
		PrimaryKey("Reviewer", 1).
		Association("Book", false, "BookID").ToOne("ID").
		Map
}

// Register adds the demo maps to catalog under Unit
func Register(catalog *fluent.Catalog) {
	catalog.Register(Unit,
		func() fluent.Mapper { return AuthorMap() },
		func() fluent.Mapper { return BookMap() },
		func() fluent.Mapper { return ReviewMap() },
		func() fluent.Mapper { return GenreMap() },
	)
}

// Catalog returns a catalog holding only the demo unit
func Catalog() *fluent.Catalog {
	catalog := fluent.NewCatalog()
	Register(catalog)
	return catalog
}

// Load merges the demo unit into a new list and returns a schema over it
func Load(logger *zap.Logger) *mapping.Schema {
	if logger == nil {
		logger = zap.NewNop()
	}
	list := extension.NewList()
	fluent.NewCache(Catalog(), fluent.WithLogger(logger)).ConfigureUnit(list, Unit)
	return mapping.NewSchema(list, mapping.WithLogger(logger))
}

// Schema is the SQLite schema the demo maps expect
const Schema = `
CREATE TABLE authors (
	ID INTEGER PRIMARY KEY AUTOINCREMENT,
	Name TEXT NOT NULL,
	Country TEXT
);
CREATE TABLE books (
	ID INTEGER PRIMARY KEY AUTOINCREMENT,
	AuthorID INTEGER NOT NULL REFERENCES authors(ID),
	ISBN TEXT NOT NULL UNIQUE,
	Title TEXT NOT NULL,
	genre_code TEXT NOT NULL,
	Published TIMESTAMP,
	Price REAL NOT NULL,
	width_mm REAL,
	height_mm REAL,
	Tags BLOB,
	Revision INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE reviews (
	BookID INTEGER NOT NULL REFERENCES books(ID),
	Reviewer TEXT NOT NULL,
	Rating INTEGER NOT NULL,
	Body TEXT,
	PRIMARY KEY (BookID, Reviewer)
);
`
