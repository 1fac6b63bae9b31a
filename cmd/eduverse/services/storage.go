package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/eduverse/cmd/eduverse/sqlitepath"
	"github.com/papercomputeco/eduverse/pkg/config"
	"github.com/papercomputeco/eduverse/pkg/storage"
	"github.com/papercomputeco/eduverse/pkg/storage/inmemory"
	"github.com/papercomputeco/eduverse/pkg/storage/postgres"
	"github.com/papercomputeco/eduverse/pkg/storage/sqlite"
)

// OpenDriver opens the storage driver selected by cfg.Storage.Driver.
func OpenDriver(ctx context.Context, cfg config.StorageConfig, configDir string, log *slog.Logger) (storage.Driver, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case config.DriverSQLite, "":
		path, err := sqlitepath.ResolveSQLitePath(cfg.SQLitePath, configDir)
		if err != nil {
			return nil, fmt.Errorf("resolving sqlite path: %w", err)
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		log.Info("using SQLite storage", "path", path)
		return driver, nil

	case config.DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres driver")
		}
		driver, err := postgres.NewDriver(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		log.Info("using PostgreSQL storage")
		return driver, nil

	case config.DriverLibSQL:
		if cfg.LibSQLURL == "" {
			return nil, errors.New("storage.libsql_url is required for the libsql driver")
		}
		driver, err := openLibSQL(ctx, cfg.LibSQLURL)
		if err != nil {
			return nil, err
		}
		log.Info("using libSQL storage")
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}
