// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendFile  = "file"
	BackendMongo = "mongo"
)

type Config struct {
	Port          string
	Env           string
	StoreBackend  string
	DataFile      string
	MongoURI      string
	MongoDatabase string
	JournalDSN    string
	OTLPEndpoint  string
	// AuthRateLimit is the number of authenticate calls allowed per minute
	// and client address.
	AuthRateLimit   int
	Seed            bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged first; variables already set win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            getEnv("PORT", "3000"),
		Env:             getEnv("APP_ENV", "prod"),
		StoreBackend:    getEnv("STORE_BACKEND", BackendFile),
		DataFile:        getEnv("DATA_FILE", "data.json"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "libreria"),
		JournalDSN:      getEnv("JOURNAL_DSN", ""),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		AuthRateLimit:   getEnvInt("AUTH_RATE_LIMIT", 30),
		Seed:            getEnvBool("SEED", false),
		ReadTimeout:     getEnvDuration("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendFile:
		if c.DataFile == "" {
			return errors.New("DATA_FILE must not be empty")
		}
	case BackendMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return errors.New("MONGO_URI and MONGO_DATABASE are required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want %q or %q)", c.StoreBackend, BackendFile, BackendMongo)
	}
	if c.AuthRateLimit <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT must be positive, got %d", c.AuthRateLimit)
	}
	return nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

func (c Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
