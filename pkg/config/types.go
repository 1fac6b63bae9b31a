package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent eduverse configuration stored as
// config.toml in the .eduverse/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Storage   StorageConfig   `toml:"storage"`
	Cache     CacheConfig     `toml:"cache"`
	Adaptive  AdaptiveConfig  `toml:"adaptive"`
	Generator GeneratorConfig `toml:"generator"`
	Events    EventsConfig    `toml:"events"`
	API       APIConfig       `toml:"api"`
	Client    ClientConfig    `toml:"client"`
}

// StorageConfig selects and locates the durable store.
type StorageConfig struct {
	// Driver is one of memory, sqlite, postgres or libsql.
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	LibSQLURL   string `toml:"libsql_url,omitempty"`
}

// CacheConfig holds the tiered cache settings.
type CacheConfig struct {
	LocalEnabled   bool     `toml:"local_enabled"`
	LocalSize      int      `toml:"local_size,omitempty"`
	LocalTTL       Duration `toml:"local_ttl,omitempty"`
	DurableEnabled bool     `toml:"durable_enabled"`
	TTL            Duration `toml:"ttl,omitempty"`
	SweepInterval  Duration `toml:"sweep_interval,omitempty"`
}

// AdaptiveConfig holds the question planner settings.
type AdaptiveConfig struct {
	FocusOnWeakTopics bool   `toml:"focus_on_weak_topics"`
	Difficulty        string `toml:"difficulty,omitempty"`
	QuestionCount     int    `toml:"question_count,omitempty"`
	IncludeReview     bool   `toml:"include_review"`
}

// GeneratorConfig selects the content generation backend. The API key is
// kept in credentials.toml, not here.
type GeneratorConfig struct {
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// EventsConfig holds study event publishing settings.
type EventsConfig struct {
	Enabled   bool     `toml:"enabled"`
	Brokers   []string `toml:"brokers,omitempty"`
	Topic     string   `toml:"topic,omitempty"`
	Workers   uint     `toml:"workers,omitempty"`
	QueueSize uint     `toml:"queue_size,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running API
// server (e.g. eduverse progress). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// Duration is a time.Duration written to TOML as a string such as "30m".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = n
			return nil
		},
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *Duration) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return field(c).String()
		},
		set: func(c *Config, v string) error {
			var d Duration
			if err := d.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = d
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver":       stringKey(func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"storage.libsql_url":   stringKey(func(c *Config) *string { return &c.Storage.LibSQLURL }),

	"cache.local_enabled":   boolKey("cache.local_enabled", func(c *Config) *bool { return &c.Cache.LocalEnabled }),
	"cache.local_size":      intKey("cache.local_size", func(c *Config) *int { return &c.Cache.LocalSize }),
	"cache.local_ttl":       durationKey("cache.local_ttl", func(c *Config) *Duration { return &c.Cache.LocalTTL }),
	"cache.durable_enabled": boolKey("cache.durable_enabled", func(c *Config) *bool { return &c.Cache.DurableEnabled }),
	"cache.ttl":             durationKey("cache.ttl", func(c *Config) *Duration { return &c.Cache.TTL }),
	"cache.sweep_interval":  durationKey("cache.sweep_interval", func(c *Config) *Duration { return &c.Cache.SweepInterval }),

	"adaptive.focus_on_weak_topics": boolKey("adaptive.focus_on_weak_topics", func(c *Config) *bool { return &c.Adaptive.FocusOnWeakTopics }),
	"adaptive.difficulty":           stringKey(func(c *Config) *string { return &c.Adaptive.Difficulty }),
	"adaptive.question_count":       intKey("adaptive.question_count", func(c *Config) *int { return &c.Adaptive.QuestionCount }),
	"adaptive.include_review":       boolKey("adaptive.include_review", func(c *Config) *bool { return &c.Adaptive.IncludeReview }),

	"generator.provider": stringKey(func(c *Config) *string { return &c.Generator.Provider }),
	"generator.model":    stringKey(func(c *Config) *string { return &c.Generator.Model }),

	"events.enabled": boolKey("events.enabled", func(c *Config) *bool { return &c.Events.Enabled }),
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error { c.Events.Brokers = splitList(v); return nil },
	},
	"events.topic":      stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"events.workers":    uintKey("events.workers", func(c *Config) *uint { return &c.Events.Workers }),
	"events.queue_size": uintKey("events.queue_size", func(c *Config) *uint { return &c.Events.QueueSize }),

	"api.listen":        stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),
}

// splitList splits a comma separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
