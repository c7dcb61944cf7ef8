package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DBConfig holds the optional Postgres configuration for history storage.
type DBConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Config holds all configuration for the studio.
type Config struct {
	// Orchestrator retry policy.
	MaxAttempts    int
	AttemptTimeout time.Duration
	BackoffBase    time.Duration
	BackoffMin     time.Duration
	BackoffCap     time.Duration

	// History store limits.
	HistoryLimit         int
	HistoryShrinkLimit   int
	HistorySizeThreshold int
	HistoryKey           string

	// Mock backend behavior.
	MockFailureRate float64
	MockMinDelay    time.Duration
	MockMaxDelay    time.Duration

	// Image preprocessing.
	ImageMaxDim  int
	ImageQuality int

	// Storage selection: DB when DB.Host is set, otherwise files under StorageDir.
	StorageDir string
	DB         DBConfig
}

// Load loads the configuration from environment variables. A .env file in
// the working directory is applied first when present; every field has a
// default, so an empty environment is valid.
func Load() (*Config, error) {
	// Best effort: a missing .env file just means plain env vars.
	_ = godotenv.Load()

	config := &Config{
		MaxAttempts:          envInt("STUDIO_MAX_ATTEMPTS", 3),
		AttemptTimeout:       envSeconds("STUDIO_ATTEMPT_TIMEOUT", 30*time.Second),
		BackoffBase:          envMillis("STUDIO_BACKOFF_BASE_MS", time.Second),
		BackoffMin:           envMillis("STUDIO_BACKOFF_MIN_MS", 100*time.Millisecond),
		BackoffCap:           envMillis("STUDIO_BACKOFF_CAP_MS", 10*time.Second),
		HistoryLimit:         envInt("STUDIO_HISTORY_LIMIT", 5),
		HistoryShrinkLimit:   envInt("STUDIO_HISTORY_SHRINK_LIMIT", 3),
		HistorySizeThreshold: envInt("STUDIO_HISTORY_SIZE_THRESHOLD", 64*1024),
		HistoryKey:           envString("STUDIO_HISTORY_KEY", "ai-studio/history"),
		MockFailureRate:      envFloat("STUDIO_MOCK_FAILURE_RATE", 0.2),
		MockMinDelay:         envMillis("STUDIO_MOCK_MIN_DELAY_MS", time.Second),
		MockMaxDelay:         envMillis("STUDIO_MOCK_MAX_DELAY_MS", 2*time.Second),
		ImageMaxDim:          envInt("STUDIO_IMAGE_MAX_DIM", 1024),
		ImageQuality:         envInt("STUDIO_IMAGE_QUALITY", 80),
		StorageDir:           envString("STUDIO_STORAGE_DIR", ".ai-studio"),
	}

	// Load database configuration; it is only validated when in use.
	dbConfig := DBConfig{
		Host:     os.Getenv("DB_HOST"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Database: os.Getenv("DB_NAME"),
		SSLMode:  envString("DB_SSL_MODE", "disable"),
	}

	// Parse database port
	if port, err := strconv.Atoi(os.Getenv("DB_PORT")); err == nil {
		dbConfig.Port = port
	} else {
		dbConfig.Port = 5432 // default PostgreSQL port
	}

	// Parse connection pool settings
	dbConfig.MaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 25)
	dbConfig.MaxIdleConns = envInt("DB_MAX_IDLE_CONNS", 25)
	if connMaxLifetime, err := strconv.Atoi(os.Getenv("DB_CONN_MAX_LIFETIME")); err == nil {
		dbConfig.ConnMaxLifetime = time.Duration(connMaxLifetime) * time.Second
	} else {
		dbConfig.ConnMaxLifetime = 5 * time.Minute // default value
	}

	config.DB = dbConfig

	// Validate numeric ranges.
	if config.MaxAttempts < 1 {
		return nil, fmt.Errorf("STUDIO_MAX_ATTEMPTS must be at least 1")
	}
	if config.MockFailureRate < 0 || config.MockFailureRate > 1 {
		return nil, fmt.Errorf("STUDIO_MOCK_FAILURE_RATE must be within [0, 1]")
	}
	if config.MockMaxDelay < config.MockMinDelay {
		return nil, fmt.Errorf("STUDIO_MOCK_MAX_DELAY_MS must not be less than STUDIO_MOCK_MIN_DELAY_MS")
	}

	// Validate database configuration only when Postgres storage is selected.
	if config.UsePostgres() {
		if config.DB.User == "" {
			return nil, fmt.Errorf("DB_USER is required when DB_HOST is set")
		}
		if config.DB.Password == "" {
			return nil, fmt.Errorf("DB_PASSWORD is required when DB_HOST is set")
		}
		if config.DB.Database == "" {
			return nil, fmt.Errorf("DB_NAME is required when DB_HOST is set")
		}
	}

	return config, nil
}

// UsePostgres reports whether history should persist to Postgres instead of
// local files.
func (c *Config) UsePostgres() bool {
	return c.DB.Host != ""
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database, c.DB.SSLMode)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func envSeconds(key string, def time.Duration) time.Duration {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return time.Duration(v) * time.Second
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return time.Duration(v) * time.Millisecond
	}
	return def
}
