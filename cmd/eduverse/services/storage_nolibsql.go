//go:build !libsql

package services

import (
	"context"
	"errors"

	"github.com/papercomputeco/eduverse/pkg/storage"
)

func openLibSQL(_ context.Context, _ string) (storage.Driver, error) {
	return nil, errors.New("libsql storage is not compiled in; rebuild with -tags libsql")
}
