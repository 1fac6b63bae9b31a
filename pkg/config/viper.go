package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/eduverse/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the EDUVERSE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (EDUVERSE_API_LISTEN, EDUVERSE_STORAGE_DRIVER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: EDUVERSE_API_LISTEN, EDUVERSE_CACHE_TTL, etc.
	v.SetEnvPrefix("EDUVERSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes the effective Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Driver:      v.GetString("storage.driver"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
			LibSQLURL:   v.GetString("storage.libsql_url"),
		},
		Cache: CacheConfig{
			LocalEnabled:   v.GetBool("cache.local_enabled"),
			LocalSize:      v.GetInt("cache.local_size"),
			LocalTTL:       Duration(v.GetDuration("cache.local_ttl")),
			DurableEnabled: v.GetBool("cache.durable_enabled"),
			TTL:            Duration(v.GetDuration("cache.ttl")),
			SweepInterval:  Duration(v.GetDuration("cache.sweep_interval")),
		},
		Adaptive: AdaptiveConfig{
			FocusOnWeakTopics: v.GetBool("adaptive.focus_on_weak_topics"),
			Difficulty:        v.GetString("adaptive.difficulty"),
			QuestionCount:     v.GetInt("adaptive.question_count"),
			IncludeReview:     v.GetBool("adaptive.include_review"),
		},
		Generator: GeneratorConfig{
			Provider: v.GetString("generator.provider"),
			Model:    v.GetString("generator.model"),
		},
		Events: EventsConfig{
			Enabled:   v.GetBool("events.enabled"),
			Brokers:   brokers(v),
			Topic:     v.GetString("events.topic"),
			Workers:   v.GetUint("events.workers"),
			QueueSize: v.GetUint("events.queue_size"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// brokers accepts a TOML array or a comma separated string, the form
// environment variables and flags arrive in.
func brokers(v *viper.Viper) []string {
	var out []string
	for _, b := range v.GetStringSlice("events.brokers") {
		out = append(out, splitList(b)...)
	}
	return out
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)
	v.SetDefault("storage.libsql_url", d.Storage.LibSQLURL)

	// Cache
	v.SetDefault("cache.local_enabled", d.Cache.LocalEnabled)
	v.SetDefault("cache.local_size", d.Cache.LocalSize)
	v.SetDefault("cache.local_ttl", d.Cache.LocalTTL.Std())
	v.SetDefault("cache.durable_enabled", d.Cache.DurableEnabled)
	v.SetDefault("cache.ttl", d.Cache.TTL.Std())
	v.SetDefault("cache.sweep_interval", d.Cache.SweepInterval.Std())

	// Adaptive
	v.SetDefault("adaptive.focus_on_weak_topics", d.Adaptive.FocusOnWeakTopics)
	v.SetDefault("adaptive.difficulty", d.Adaptive.Difficulty)
	v.SetDefault("adaptive.question_count", d.Adaptive.QuestionCount)
	v.SetDefault("adaptive.include_review", d.Adaptive.IncludeReview)

	// Generator
	v.SetDefault("generator.provider", d.Generator.Provider)
	v.SetDefault("generator.model", d.Generator.Model)

	// Events
	v.SetDefault("events.enabled", d.Events.Enabled)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
	v.SetDefault("events.workers", d.Events.Workers)
	v.SetDefault("events.queue_size", d.Events.QueueSize)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Client
	v.SetDefault("client.api_target", d.Client.APITarget)
}
