//go:build cgo && !libsql

package sqlite

import (
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
)

// defaultDriver is the github.com/mattn/go-sqlite3 driver.
const defaultDriver = "sqlite3"
