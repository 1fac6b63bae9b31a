// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers "sqlite"

	"github.com/papercomputeco/eduverse/pkg/storage/sqlstore"
)

// PureDriver is the modernc.org/sqlite driver name. It needs no cgo.
const PureDriver = "sqlite"

func init() {
	// sqlx only knows "sqlite3" as a '?' dialect out of the box.
	sqlx.BindDriver(PureDriver, sqlx.QUESTION)
}

// Driver implements storage.Driver using SQLite.
type Driver struct {
	*sqlstore.Driver
}

// Option configures a Driver.
type Option func(*options)

type options struct {
	driverName string
}

// WithPureGo opens the database with modernc.org/sqlite even when the
// cgo-based driver is compiled in.
func WithPureGo() Option {
	return func(o *options) {
		o.driverName = PureDriver
	}
}

// NewDriver creates a new SQLite-backed store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, dbPath string, opts ...Option) (*Driver, error) {
	o := &options{driverName: defaultDriver}
	for _, opt := range opts {
		opt(o)
	}

	db, err := sqlx.Open(o.driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" gets its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store, err := sqlstore.New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Driver: store}, nil
}
