package config

import "time"

const (
	// Storage drivers accepted by storage.driver.
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverLibSQL   = "libsql"

	defaultStorageDriver = DriverSQLite
	defaultSQLiteFile    = "eduverse.sqlite"

	defaultLocalSize     = 50
	defaultLocalTTL      = 30 * time.Minute
	defaultTTL           = 7 * 24 * time.Hour
	defaultSweepInterval = time.Hour

	defaultDifficulty    = "none"
	defaultQuestionCount = 5

	defaultGeneratorProvider = "gemini"
	defaultGeneratorModel    = "gemini-2.5-flash"

	defaultEventsTopic     = "eduverse.study.events"
	defaultEventsWorkers   = 3
	defaultEventsQueueSize = 256

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Cache: CacheConfig{
			LocalEnabled:   true,
			LocalSize:      defaultLocalSize,
			LocalTTL:       Duration(defaultLocalTTL),
			DurableEnabled: true,
			TTL:            Duration(defaultTTL),
			SweepInterval:  Duration(defaultSweepInterval),
		},
		Adaptive: AdaptiveConfig{
			FocusOnWeakTopics: true,
			Difficulty:        defaultDifficulty,
			QuestionCount:     defaultQuestionCount,
		},
		Generator: GeneratorConfig{
			Provider: defaultGeneratorProvider,
			Model:    defaultGeneratorModel,
		},
		Events: EventsConfig{
			Topic:     defaultEventsTopic,
			Workers:   defaultEventsWorkers,
			QueueSize: defaultEventsQueueSize,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}

// DefaultSQLiteFile is the database file name used inside the .eduverse/
// directory when storage.sqlite_path is unset.
func DefaultSQLiteFile() string {
	return defaultSQLiteFile
}
