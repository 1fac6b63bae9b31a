package credentials

import "time"

// Credentials is the content of credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ProviderCredential is the stored key for one generation provider.
type ProviderCredential struct {
	APIKey    string    `toml:"api_key"`
	UpdatedAt time.Time `toml:"updated_at,omitempty"`
}

// Source says where a resolved key came from.
type Source string

const (
	SourceNone   Source = "none"
	SourceStored Source = "stored"
	SourceEnv    Source = "env"
)

// Resolved is a provider key together with its origin.
type Resolved struct {
	Provider string
	Key      string
	Source   Source

	// EnvVar is the provider's environment variable, stored or not.
	EnvVar string

	// UpdatedAt is when a stored key was written. Zero for other sources.
	UpdatedAt time.Time
}
