package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/eduverse/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// providerEnvVars maps provider names to their expected environment variables.
var providerEnvVars = map[string]string{
	"gemini": "GEMINI_API_KEY",
}

// Manager manages reading and writing credentials.toml in the .eduverse/ directory.
type Manager struct {
	targetPath string
	now        func() time.Time
}

// NewManager creates a credentials Manager for the .eduverse/ directory
// resolved from override.
func NewManager(override string) (*Manager, error) {
	target, err := dotdir.NewManager().Path(override, credentialsFile)
	if err != nil {
		return nil, err
	}

	return &Manager{
		targetPath: target,
		now:        time.Now,
	}, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version:   currentVersion,
				Providers: make(map[string]ProviderCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetKey stores an API key for the given provider.
func (m *Manager) SetKey(provider, key string) error {
	return m.update(func(creds *Credentials) {
		creds.Providers[provider] = ProviderCredential{
			APIKey:    key,
			UpdatedAt: m.now().UTC().Truncate(time.Second),
		}
	})
}

// GetKey returns the stored API key for the given provider.
// Returns an empty string if no key is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Providers[provider].APIKey, nil
}

// RemoveKey deletes the stored credential for a provider.
func (m *Manager) RemoveKey(provider string) error {
	return m.update(func(creds *Credentials) {
		delete(creds.Providers, provider)
	})
}

func (m *Manager) update(fn func(*Credentials)) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	fn(creds)
	return m.Save(creds)
}

// ListProviders returns the names of providers that have stored credentials.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	providers := make([]string, 0, len(creds.Providers))
	for name := range creds.Providers {
		providers = append(providers, name)
	}

	sort.Strings(providers)

	return providers, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// EnvVarForProvider returns the environment variable name for a given provider.
// Returns an empty string for unknown providers.
func EnvVarForProvider(provider string) string {
	return providerEnvVars[provider]
}

// SupportedProviders returns the providers a key can be stored for, sorted.
func SupportedProviders() []string {
	providers := make([]string, 0, len(providerEnvVars))
	for p := range providerEnvVars {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers
}

// Lookup resolves the key for provider. A stored key wins over the
// provider's environment variable.
func (m *Manager) Lookup(provider string) (Resolved, error) {
	r := Resolved{
		Provider: provider,
		Source:   SourceNone,
		EnvVar:   EnvVarForProvider(provider),
	}

	creds, err := m.Load()
	if err != nil {
		return r, err
	}

	if pc := creds.Providers[provider]; pc.APIKey != "" {
		r.Key = pc.APIKey
		r.Source = SourceStored
		r.UpdatedAt = pc.UpdatedAt
		return r, nil
	}

	if r.EnvVar != "" {
		if key := os.Getenv(r.EnvVar); key != "" {
			r.Key = key
			r.Source = SourceEnv
		}
	}
	return r, nil
}

// ResolveKey returns the key Lookup finds, or "" when there is none.
func (m *Manager) ResolveKey(provider string) (string, error) {
	r, err := m.Lookup(provider)
	if err != nil {
		return "", err
	}
	return r.Key, nil
}

// Mask hides all but the last four characters of key.
func Mask(key string) string {
	const visible = 4
	if len(key) <= visible {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-visible:]
}

// IsSupportedProvider returns true if the given provider is supported.
func IsSupportedProvider(provider string) bool {
	return slices.Contains(SupportedProviders(), provider)
}
