//go:build libsql

package services

import (
	"context"
	"fmt"

	"github.com/papercomputeco/eduverse/pkg/storage"
	"github.com/papercomputeco/eduverse/pkg/storage/libsql"
)

func openLibSQL(ctx context.Context, url string) (storage.Driver, error) {
	driver, err := libsql.NewDriver(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create libSQL driver: %w", err)
	}
	return driver, nil
}
