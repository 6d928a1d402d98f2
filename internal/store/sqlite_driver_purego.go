//go:build !cgo_sqlite

package store

// Pure Go SQLite, no C toolchain required. This is the default build.

import (
	_ "modernc.org/sqlite"
)

// SQLiteDriverName is the database/sql driver used by SQLiteIndex.
const SQLiteDriverName = "sqlite"
