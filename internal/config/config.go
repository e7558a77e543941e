package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Supported store backends
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the complete process configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string
	Port         int           `validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `validate:"gt=0"`
	WriteTimeout time.Duration `validate:"gt=0"`
	IdleTimeout  time.Duration `validate:"gt=0"`
}

// DatabaseConfig holds observation store settings
type DatabaseConfig struct {
	Driver     string `validate:"oneof=sqlite3 postgres memory"`
	SQLitePath string `validate:"required_unless=Driver postgres"`

	Host     string `validate:"required_if=Driver postgres"`
	Port     int    `validate:"min=1,max=65535"`
	User     string `validate:"required_if=Driver postgres"`
	Password string
	Database string `validate:"required_if=Driver postgres"`
	SSLMode  string `validate:"oneof=disable require verify-ca verify-full"`

	MaxOpenConns    int           `validate:"min=1"`
	MaxIdleConns    int           `validate:"min=0"`
	ConnMaxLifetime time.Duration `validate:"min=0"`
	ConnMaxIdleTime time.Duration `validate:"min=0"`
	QueryTimeout    time.Duration `validate:"min=0"`

	BreakerFailures uint32
	BreakerCooldown time.Duration `validate:"min=0"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

var validate = validator.New()

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables take precedence over it.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var errs []error
	cfg := &Config{
		Server: ServerConfig{
			Host:         getenvDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getenvInt("SERVER_PORT", 8080, &errs),
			ReadTimeout:  getenvDuration("SERVER_READ_TIMEOUT", 10*time.Second, &errs),
			WriteTimeout: getenvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second, &errs),
			IdleTimeout:  getenvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second, &errs),
		},
		Database: DatabaseConfig{
			Driver:          getenvDefault("DB_DRIVER", DriverSQLite),
			SQLitePath:      getenvDefault("SQLITE_PATH", "Resources/hawaii.sqlite"),
			Host:            getenvDefault("DB_HOST", "localhost"),
			Port:            getenvInt("DB_PORT", 5432, &errs),
			User:            getenvDefault("DB_USER", "postgres"),
			Password:        os.Getenv("DB_PASSWORD"),
			Database:        getenvDefault("DB_NAME", "hawaii"),
			SSLMode:         getenvDefault("DB_SSLMODE", "disable"),
			MaxOpenConns:    getenvInt("DB_MAX_OPEN_CONNS", 10, &errs),
			MaxIdleConns:    getenvInt("DB_MAX_IDLE_CONNS", 5, &errs),
			ConnMaxLifetime: getenvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute, &errs),
			ConnMaxIdleTime: getenvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute, &errs),
			QueryTimeout:    getenvDuration("DB_QUERY_TIMEOUT", 5*time.Second, &errs),
			BreakerFailures: getenvUint32("DB_BREAKER_FAILURES", 5, &errs),
			BreakerCooldown: getenvDuration("DB_BREAKER_COOLDOWN", 30*time.Second, &errs),
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(getenvDefault("LOG_LEVEL", "info")),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		*errs = append(*errs, fmt.Errorf("invalid %s %q: expected a non-negative integer", key, v))
		return def
	}
	return n
}

func getenvUint32(key string, def uint32, errs *[]error) uint32 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s %q: expected an integer between 0 and %d", key, v, uint32(math.MaxUint32)))
		return def
	}
	return uint32(n)
}

func getenvDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
		return def
	}
	return d
}
