package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	Driver     string
	Host       string
	User       string
	Password   string
	Name       string
	Port       string
	SSLMode    string
	SQLitePath string
}

// DSN builds the postgres connection string, or returns the sqlite path.
func (c DBConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.SQLitePath
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

type S3Config struct {
	Bucket        string
	Region        string
	PublicBaseURL string
	KeyPrefix     string
}

// Enabled reports whether food images can be uploaded.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

type Config struct {
	Port            int
	LogLevel        string
	JWTSecret       string
	RateLimit       rate.Limit
	RateLimitBurst  int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	DB DBConfig
	S3 S3Config
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		Port:            envInt("PORT", 8080),
		LogLevel:        envString("LOG_LEVEL", "info"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RateLimit:       rate.Limit(envInt("RATE_LIMIT", 100)),
		RateLimitBurst:  envInt("RATE_LIMIT_BURST", 200),
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: time.Duration(envInt("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,
		DB: DBConfig{
			Driver:     strings.ToLower(envString("DB_DRIVER", DriverPostgres)),
			Host:       envString("DB_HOST", "localhost"),
			User:       os.Getenv("DB_USER"),
			Password:   os.Getenv("DB_PASSWORD"),
			Name:       envString("DB_NAME", "nutrition"),
			Port:       envString("DB_PORT", "5432"),
			SSLMode:    envString("DB_SSLMODE", "disable"),
			SQLitePath: envString("SQLITE_PATH", "nutrition.db"),
		},
		S3: S3Config{
			Bucket:        os.Getenv("S3_BUCKET"),
			Region:        envString("S3_REGION", os.Getenv("AWS_REGION")),
			PublicBaseURL: os.Getenv("CLOUDFRONT_URL"),
			KeyPrefix:     envString("S3_KEY_PREFIX", "food-images"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	switch c.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported", c.DB.Driver))
	}
	if c.RateLimit <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT and RATE_LIMIT_BURST must be positive"))
	}
	if c.S3.Enabled() && c.S3.Region == "" {
		errs = append(errs, errors.New("S3_REGION or AWS_REGION is required when S3_BUCKET is set"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for http.Server.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
