// Package dotdir manages the .eduverse/ and ~/.eduverse directories.
//
// Besides configuration and credentials, the directory holds the CLI profile:
// the learner the CLI acts for and the source they last studied.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const dirName = ".eduverse"

// EnvVar names a directory used in place of the discovered one. An explicit
// override still wins over it.
const EnvVar = "EDUVERSE_HOME"

// Manager resolves the .eduverse/ directory and files inside it.
type Manager struct {
	getwd   func() (string, error)
	homeDir func() (string, error)
}

func NewManager() *Manager {
	return &Manager{
		getwd:   os.Getwd,
		homeDir: os.UserHomeDir,
	}
}

// Target returns the absolute path of the .eduverse/ directory, creating it
// if needed. The first match wins:
//  1. overrideDir
//  2. $EDUVERSE_HOME
//  3. ./.eduverse/ when it exists
//  4. ~/.eduverse/
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating eduverse directory %s: %w", dir, err)
	}
	return filepath.Abs(dir)
}

// Path returns the path of name inside the resolved directory.
func (m *Manager) Path(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (m *Manager) resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}
	if env := strings.TrimSpace(os.Getenv(EnvVar)); env != "" {
		return env, nil
	}

	cwd, err := m.getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	local := filepath.Join(cwd, dirName)
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local, nil
	}

	home, err := m.homeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}
