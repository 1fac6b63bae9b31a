// Package libsql provides a libSQL-backed storage driver. It opens local
// database files and remote Turso databases through the same driver.
//
// The driver is compiled only with the libsql build tag:
//
//	go build -tags libsql ./...
package libsql
