package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

var (
	validBackends   = []string{BackendMemory, BackendSQLite, BackendMongo}
	validProfitMode = []string{"incremental", "rescan"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// SQLite
	SQLiteDBPath string

	// MongoDB
	MongoURI      string
	MongoDatabase string

	// AMQP
	AMQPURL         string
	AMQPExchange    string
	AMQPEventsQueue string
	AMQPRecalcQueue string

	// Profits
	ProfitMode string

	// Workers
	SchedulerInterval time.Duration
	VerifyInterval    time.Duration

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", BackendSQLite),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finanzas.db"),

		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "finanzas"),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "finanzas"),
		AMQPEventsQueue: getEnv("AMQP_EVENTS_QUEUE", "ledger_events"),
		AMQPRecalcQueue: getEnv("AMQP_RECALC_QUEUE", "ledger_recalculate"),

		ProfitMode: strings.ToLower(getEnv("PROFIT_MODE", "incremental")),

		SchedulerInterval: getEnvDuration("SCHEDULER_INTERVAL", time.Hour),
		VerifyInterval:    getEnvDuration("VERIFY_INTERVAL", 15*time.Minute),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	return cfg
}

// Validate validates the configuration and returns an error listing every problem found
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case BackendMongo:
		if c.MongoURI == "" {
			errors = append(errors, "MONGO_URI is required when using mongo backend")
		} else if u, err := url.Parse(c.MongoURI); err != nil {
			errors = append(errors, fmt.Sprintf("invalid MongoDB URI: %v", err))
		} else if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
			errors = append(errors, fmt.Sprintf("invalid MongoDB URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", u.Scheme))
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "MongoDB database name cannot be empty when using mongo backend")
		}
	}

	// AMQP is optional; without it deletes recalculate inline and no events are published
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPEventsQueue == "" {
			errors = append(errors, "AMQP events queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRecalcQueue == "" {
			errors = append(errors, "AMQP recalculation queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPEventsQueue != "" && c.AMQPEventsQueue == c.AMQPRecalcQueue {
			errors = append(errors, "AMQP events and recalculation queues must differ")
		}
	}

	if !slices.Contains(validProfitMode, c.ProfitMode) {
		errors = append(errors, fmt.Sprintf("invalid profit mode '%s': must be one of %v", c.ProfitMode, validProfitMode))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if c.SchedulerInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid scheduler interval %v: must be at least 1 second", c.SchedulerInterval))
	} else if c.SchedulerInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid scheduler interval %v: must be at most 24 hours", c.SchedulerInterval))
	}

	if c.VerifyInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid verify interval %v: must be at least 1 second", c.VerifyInterval))
	} else if c.VerifyInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid verify interval %v: must be at most 24 hours", c.VerifyInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
