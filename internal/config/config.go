// Пакет config загружает настройки сервиса из .env и переменных окружения
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Events   EventsConfig
	App      AppConfig
}

type ServerConfig struct {
	Port              string
	CORSOriginPattern string
	ShutdownTimeout   time.Duration
}

// StoreConfig выбирает реализацию хранилища проектов
type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MigrationsDir  string
	MigrateOnStart bool
}

// EventsConfig настройки конвейера событий NATS -> ClickHouse
type EventsConfig struct {
	NATSURL                 string
	Subject                 string
	ClickhouseDSN           string
	ClickhouseMigrationsDir string
	BatchSize               int
	ConsumerPort            string
}

type AppConfig struct {
	Environment string
	LogLevel    string
}

// Load читает .env (если он есть) и переменные окружения, затем проверяет значения
func Load() (*Config, error) {
	// отсутствие .env - нормальная ситуация, окружение задаётся снаружи
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnv("HTTP_PORT", "3000"),
			CORSOriginPattern: getEnv("CORS_ORIGIN_PATTERN", `^http://localhost:\d+$`),
			ShutdownTimeout:   getEnvAsDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvAsInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			Name:           getEnv("DB_NAME", "appdb"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsDir:  getEnv("MIGRATIONS_DIR", "migrations/postgres"),
			MigrateOnStart: getEnvAsBool("MIGRATE_ON_START", true),
		},
		Events: EventsConfig{
			NATSURL:                 getEnv("NATS_URL", ""),
			Subject:                 getEnv("NATS_SUBJECT", "projects.events"),
			ClickhouseDSN:           getEnv("CLICKHOUSE_DSN", ""),
			ClickhouseMigrationsDir: getEnv("CLICKHOUSE_MIGRATIONS_DIR", "migrations/clickhouse"),
			BatchSize:               getEnvAsInt("BATCH_SIZE", 10),
			ConsumerPort:            getEnv("CONSUMER_PORT", "8081"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("HTTP_PORT must be a number, got %q", c.Server.Port)
	}
	if _, err := regexp.Compile(c.Server.CORSOriginPattern); err != nil {
		return fmt.Errorf("CORS_ORIGIN_PATTERN is invalid: %w", err)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.Store.Driver)
	}
	if c.Events.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive")
	}
	return nil
}

// PostgresDSN собирает строку подключения для lib/pq
func (c DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
