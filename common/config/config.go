// Package config loads engine configuration from the environment, following
// the same getEnv-with-default convention used across this service family.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all engine configuration.
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Runtime   RuntimeConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings.
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings for the persistence adapter.
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds connection settings for the object store and usage
// accounting backends.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RuntimeConfig holds the three environment variables spec.md §6.5 reserves
// for the core itself (parallelism, node deadline, presign TTL), plus the
// default monthly org budget and the per-org execute rate limit.
type RuntimeConfig struct {
	MaxNodeParallelism      int
	NodeDeadline            time.Duration
	ObjectStorePresignTTL   time.Duration
	MonthlyOrgBudgetDefault int64
	ExecuteRateLimitPerOrg  int64
	ExecuteRateLimitWindow  time.Duration
}

// TelemetryConfig holds observability toggles.
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// Load loads configuration from environment variables, applying the same
// defaults a local developer run needs.
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "flowengine"),
			User:        getEnv("POSTGRES_USER", "flowengine"),
			Password:    getEnv("POSTGRES_PASSWORD", "flowengine"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 50),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 10),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Runtime: RuntimeConfig{
			MaxNodeParallelism:      getEnvInt("MAX_NODE_PARALLELISM", 4),
			NodeDeadline:            getEnvDuration("NODE_DEADLINE_SECONDS", 300*time.Second),
			ObjectStorePresignTTL:   getEnvDuration("OBJECT_STORE_PRESIGN_TTL_SECONDS", 3600*time.Second),
			MonthlyOrgBudgetDefault: int64(getEnvInt("ORG_MONTHLY_BUDGET_DEFAULT", 100000)),
			ExecuteRateLimitPerOrg:  int64(getEnvInt("EXECUTE_RATE_LIMIT_PER_ORG", 60)),
			ExecuteRateLimitWindow:  getEnvDuration("EXECUTE_RATE_LIMIT_WINDOW_SECONDS", 60*time.Second),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", false),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks invariants on the loaded configuration.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}
	if c.Runtime.MaxNodeParallelism < 1 {
		return fmt.Errorf("max_node_parallelism must be >= 1")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
