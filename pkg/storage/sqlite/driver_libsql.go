//go:build libsql

package sqlite

// go-libsql links its own SQLite build, which collides with the symbols of
// github.com/mattn/go-sqlite3. Builds tagged libsql use the pure Go driver.
const defaultDriver = PureDriver
