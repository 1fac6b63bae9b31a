// Package sqlitepath resolves where the SQLite database lives when no path
// is configured.
package sqlitepath

import (
	"os"
	"strings"

	"github.com/papercomputeco/eduverse/pkg/config"
	"github.com/papercomputeco/eduverse/pkg/dotdir"
)

// EnvVar overrides the resolved database path.
const EnvVar = "EDUVERSE_SQLITE"

// ResolveSQLitePath returns override when set, then $EDUVERSE_SQLITE, then
// eduverse.sqlite inside the resolved .eduverse/ directory.
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv(EnvVar)); envPath != "" {
		return envPath, nil
	}

	return dotdir.NewManager().Path(configDir, config.DefaultSQLiteFile())
}
