//go:build libsql

package libsql

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/tursodatabase/go-libsql" // registers "libsql"

	"github.com/papercomputeco/eduverse/pkg/storage/sqlstore"
)

const driverName = "libsql"

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

// Driver implements storage.Driver using libSQL.
type Driver struct {
	*sqlstore.Driver
}

// NewDriver creates a new libSQL-backed store. url is either a
// "file:" URL for a local database or a "libsql://" URL (with an authToken
// query parameter) for a remote one. A bare path is treated as a local file.
func NewDriver(ctx context.Context, url string) (*Driver, error) {
	if !strings.Contains(url, ":") {
		url = "file:" + url
	}

	db, err := sqlx.Open(driverName, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := sqlstore.New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Driver: store}, nil
}
