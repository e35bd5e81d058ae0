package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type StoreDriver string

const (
	StoreMemory   StoreDriver = "memory"
	StoreRedis    StoreDriver = "redis"
	StorePostgres StoreDriver = "postgres"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	Prefix      string
}

type AppConfig struct {
	ServiceName     string
	Env             string
	HTTPAddr        string
	StoreDriver     StoreDriver
	ShutdownTimeout time.Duration
	Postgres        PostgresConfig
	Redis           RedisConfig
}

// LoadDotEnv reads .env files into the process environment. A missing file is
// not an error.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type parser struct {
	errs []error
}

func (p *parser) int(key, def string) int {
	raw := getenv(key, def)
	i, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: invalid int value %q", key, raw))
		return 0
	}
	return i
}

func (p *parser) seconds(key, def string) time.Duration {
	return time.Duration(p.int(key, def)) * time.Second
}

// Load builds the configuration from the environment. Every malformed value is
// reported, joined into one error.
func Load() (AppConfig, error) {
	p := &parser{}

	cfg := AppConfig{
		ServiceName:     getenv("SERVICE_NAME", "invoicing"),
		Env:             getenv("ENV", "dev"),
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		StoreDriver:     StoreDriver(getenv("STORE_DRIVER", string(StoreMemory))),
		ShutdownTimeout: p.seconds("SHUTDOWN_TIMEOUT", "10"),
		Postgres: PostgresConfig{
			Host:     getenv("PG_HOST", "127.0.0.1"),
			Port:     p.int("PG_PORT", "5432"),
			User:     getenv("PG_USER", "postgres"),
			Password: getenv("PG_PASSWORD", ""),
			DBName:   getenv("PG_DB", "invoicing"),
			SSLMode:  getenv("PG_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:        getenv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    getenv("REDIS_PASSWORD", ""),
			DB:          p.int("REDIS_DB", "0"),
			MaxRetries:  p.int("REDIS_MAX_RETRIES", "3"),
			DialTimeout: p.seconds("REDIS_DIAL_TIMEOUT", "5"),
			Timeout:     p.seconds("REDIS_TIMEOUT", "3"),
			Prefix:      getenv("REDIS_PREFIX", "invoicing:invoice:"),
		},
	}

	switch cfg.StoreDriver {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		p.errs = append(p.errs, fmt.Errorf("config: STORE_DRIVER: unknown driver %q", cfg.StoreDriver))
	}

	if err := errors.Join(p.errs...); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
