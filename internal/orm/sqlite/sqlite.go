// Package sqlite opens SQLite databases with the driver chosen at build time.
//
// Build modes:
//   - Default: pure Go modernc.org/sqlite, no CGO required
//   - -tags cgo_sqlite: github.com/mattn/go-sqlite3, requires CGO_ENABLED=1
//
// Use Open instead of sql.Open so the registered driver name always matches.
package sqlite

import (
	"database/sql"
	"fmt"
)

// DriverName returns the registered database/sql driver name
func DriverName() string {
	return driverName
}

// DriverType returns "purego" or "cgo"
func DriverType() string {
	return driverType
}

// IsCGO reports whether the CGO driver is linked in
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens a SQLite database and checks the connection
func Open(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open %s: %w", dataSourceName, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to connect to %s: %w", dataSourceName, err)
	}
	return db, nil
}

// OpenMemory opens a private in-memory database. The pool is limited to one
// connection because every new connection to ":memory:" is a new database.
func OpenMemory() (*sql.DB, error) {
	db, err := Open(":memory:")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
