package backend

import (
	"fmt"

	"finanzas/internal/config"
	"finanzas/internal/services"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Type: BackendType(appConfig.DataBackend),

		SQLiteDBPath: appConfig.SQLiteDBPath,

		MongoURI:      appConfig.MongoURI,
		MongoDatabase: appConfig.MongoDatabase,

		AMQPURL:         appConfig.AMQPURL,
		AMQPExchange:    appConfig.AMQPExchange,
		AMQPEventsQueue: appConfig.AMQPEventsQueue,
		AMQPRecalcQueue: appConfig.AMQPRecalcQueue,

		ProfitMode: services.ProfitMode(appConfig.ProfitMode),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if !c.ProfitMode.IsValid() {
		return fmt.Errorf("invalid profit mode: %s", c.ProfitMode)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MongoBackend:
		if c.MongoURI == "" {
			return fmt.Errorf("MongoDB URI is required for mongo backend")
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("MongoDB database is required for mongo backend")
		}
	case MemoryBackend:
		// nothing to check; data lives for the process lifetime
	}

	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := []BackendType{MemoryBackend, SQLiteBackend, MongoBackend}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
