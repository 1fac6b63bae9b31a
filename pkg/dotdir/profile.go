package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const profileFile = "profile.json"

// Profile is the persisted CLI profile.
type Profile struct {
	// UserID is the learner CLI commands act for when --user is omitted.
	UserID string `json:"user_id"`

	// LastFingerprint is the source most recently queried from the CLI.
	LastFingerprint string `json:"last_fingerprint,omitempty"`
}

// LoadProfile loads the profile from a target .eduverse/profile.json.
// Returns nil, nil if no profile exists.
// If overrideDir is non-empty, it is used instead of the default ~/.eduverse/ location.
func (m *Manager) LoadProfile(overrideDir string) (*Profile, error) {
	path, err := m.Path(overrideDir, profileFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	profile := &Profile{}
	if err := json.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}

	return profile, nil
}

// SaveProfile persists the profile to a target .eduverse/profile.json.
func (m *Manager) SaveProfile(profile *Profile, overrideDir string) error {
	if profile == nil {
		return errors.New("cannot save nil profile")
	}

	path, err := m.Path(overrideDir, profileFile)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}

	return nil
}

// ClearProfile removes the profile file.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearProfile(overrideDir string) error {
	path, err := m.Path(overrideDir, profileFile)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing profile: %w", err)
	}

	return nil
}
