package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`

	GRPCPort int `yaml:"grpc_port"`
	HTTPPort int `yaml:"http_port"`

	CartStore string   `yaml:"cart_store"`
	Postgres  Postgres `yaml:"postgres"`
	Commerce  Commerce `yaml:"commerce"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	QuoteConcurrency   int      `yaml:"quote_concurrency"`
}

type Postgres struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	User    string `yaml:"user"`
	Pass    string `yaml:"password"`
	DB      string `yaml:"db"`
	SSLMode string `yaml:"sslmode"`
}

type Commerce struct {
	BaseURL     string        `yaml:"base_url"`
	AccessToken string        `yaml:"access_token"`
	Timeout     time.Duration `yaml:"timeout"`
}

func defaults() Config {
	return Config{
		AppEnv:    "dev",
		LogLevel:  "info",
		HTTPPort:  8080,
		GRPCPort:  8081,
		CartStore: StoreMemory,
		Postgres: Postgres{
			Host:    "localhost",
			Port:    5432,
			User:    "shopping",
			Pass:    "shoppingpassword",
			DB:      "shopping_db",
			SSLMode: "disable",
		},
		Commerce: Commerce{
			Timeout: 15 * time.Second,
		},
		CORSAllowedOrigins: []string{"http://localhost:4200"},
		QuoteConcurrency:   10,
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE and the environment, in that order. A .env file in the working
// directory is loaded first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = getEnvInt("GRPC_PORT", cfg.GRPCPort)
	cfg.CartStore = strings.ToLower(getEnv("CART_STORE", cfg.CartStore))

	cfg.Postgres.Host = getEnv("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = getEnvInt("POSTGRES_PORT", cfg.Postgres.Port)
	cfg.Postgres.User = getEnv("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Pass = getEnv("POSTGRES_PASSWORD", cfg.Postgres.Pass)
	cfg.Postgres.DB = getEnv("POSTGRES_DB", cfg.Postgres.DB)
	cfg.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", cfg.Postgres.SSLMode)

	cfg.Commerce.BaseURL = strings.TrimSuffix(getEnv("COMMERCE_API_URL", cfg.Commerce.BaseURL), "/")
	cfg.Commerce.AccessToken = getEnv("COMMERCE_ACCESS_TOKEN", cfg.Commerce.AccessToken)
	cfg.Commerce.Timeout = getEnvDuration("COMMERCE_TIMEOUT", cfg.Commerce.Timeout)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}
	cfg.QuoteConcurrency = getEnvInt("QUOTE_CONCURRENCY", cfg.QuoteConcurrency)
}

func (c Config) Validate() error {
	var errs []error
	if c.Commerce.BaseURL == "" {
		errs = append(errs, errors.New("COMMERCE_API_URL is required"))
	}
	if c.Commerce.AccessToken == "" {
		errs = append(errs, errors.New("COMMERCE_ACCESS_TOKEN is required"))
	}
	switch c.CartStore {
	case StoreMemory, StorePostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown CART_STORE %q", c.CartStore))
	}
	if c.HTTPPort <= 0 || c.GRPCPort <= 0 {
		errs = append(errs, errors.New("ports must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
