//go:build !cgo && !libsql

package sqlite

// Without cgo only the pure Go driver is available.
const defaultDriver = PureDriver
