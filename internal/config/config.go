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

type AppConfig struct {
	Port       string `yaml:"port"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
	CORSOrigin string `yaml:"cors_origin"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MigrationsPath  string        `yaml:"migrations_path"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpire time.Duration `yaml:"jwt_expire"`
}

// RedisConfig is optional; an empty Addr switches the cart to in-memory storage
// and turns rate limiting off.
type RedisConfig struct {
	Addr            string        `yaml:"addr"`
	DB              int           `yaml:"db"`
	CartTTL         time.Duration `yaml:"cart_ttl"`
	APIRateLimit    int           `yaml:"api_rate_limit"`
	APIRateWindow   time.Duration `yaml:"api_rate_window"`
	LoginRateLimit  int           `yaml:"login_rate_limit"`
	LoginRateWindow time.Duration `yaml:"login_rate_window"`
}

type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	OrderTopic string   `yaml:"order_topic"`
}

type Config struct {
	App      AppConfig      `yaml:"app"`
	Postgres PostgresConfig `yaml:"postgres"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
}

const defaultJWTSecret = "your_jwt_secret_key_change_this_in_production"

func defaults() Config {
	return Config{
		App: AppConfig{
			Port:       "5000",
			LogLevel:   "info",
			LogFormat:  "json",
			CORSOrigin: "http://localhost:3000",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			DBName:          "baharserene",
			SSLMode:         "disable",
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MigrationsPath:  "migrations",
		},
		Auth: AuthConfig{
			JWTSecret: defaultJWTSecret,
			JWTExpire: 7 * 24 * time.Hour,
		},
		Redis: RedisConfig{
			CartTTL:         30 * 24 * time.Hour,
			APIRateLimit:    100,
			APIRateWindow:   15 * time.Minute,
			LoginRateLimit:  5,
			LoginRateWindow: 15 * time.Minute,
		},
		Kafka: KafkaConfig{
			OrderTopic: "storefront.orders",
		},
	}
}

// NewConfig builds the configuration from defaults, an optional YAML file named
// by CONFIG_PATH and the environment, in that order of precedence.
// A .env file in the working directory is loaded first when present.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := defaults()

	if path := getEnv("CONFIG_PATH", ""); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.App.Port = getEnv("APP_PORT", cfg.App.Port)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.LogFormat = getEnv("LOG_FORMAT", cfg.App.LogFormat)
	cfg.App.CORSOrigin = getEnv("CORS_ORIGIN", cfg.App.CORSOrigin)

	cfg.Postgres.Host = getEnv("DB_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = getEnv("DB_PORT", cfg.Postgres.Port)
	cfg.Postgres.User = getEnv("DB_USER", cfg.Postgres.User)
	cfg.Postgres.Password = getEnv("DB_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.DBName = getEnv("DB_NAME", cfg.Postgres.DBName)
	cfg.Postgres.SSLMode = getEnv("DB_SSLMODE", cfg.Postgres.SSLMode)
	cfg.Postgres.MigrationsPath = getEnv("MIGRATIONS_PATH", cfg.Postgres.MigrationsPath)

	maxConns, err := getEnvInt("DB_MAX_CONNS", int(cfg.Postgres.MaxConns))
	if err != nil {
		return fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	cfg.Postgres.MaxConns = int32(maxConns)

	minConns, err := getEnvInt("DB_MIN_CONNS", int(cfg.Postgres.MinConns))
	if err != nil {
		return fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}
	cfg.Postgres.MinConns = int32(minConns)

	if cfg.Postgres.MaxConnLifetime, err = getEnvDuration("DB_MAX_CONN_LIFETIME", cfg.Postgres.MaxConnLifetime); err != nil {
		return fmt.Errorf("invalid DB_MAX_CONN_LIFETIME: %w", err)
	}

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	if cfg.Auth.JWTExpire, err = getEnvDuration("JWT_EXPIRE", cfg.Auth.JWTExpire); err != nil {
		return fmt.Errorf("invalid JWT_EXPIRE: %w", err)
	}

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", cfg.Redis.DB); err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.Redis.CartTTL, err = getEnvDuration("CART_TTL", cfg.Redis.CartTTL); err != nil {
		return fmt.Errorf("invalid CART_TTL: %w", err)
	}
	if cfg.Redis.APIRateLimit, err = getEnvInt("API_RATE_LIMIT", cfg.Redis.APIRateLimit); err != nil {
		return fmt.Errorf("invalid API_RATE_LIMIT: %w", err)
	}
	if cfg.Redis.APIRateWindow, err = getEnvDuration("API_RATE_WINDOW", cfg.Redis.APIRateWindow); err != nil {
		return fmt.Errorf("invalid API_RATE_WINDOW: %w", err)
	}
	if cfg.Redis.LoginRateLimit, err = getEnvInt("LOGIN_RATE_LIMIT", cfg.Redis.LoginRateLimit); err != nil {
		return fmt.Errorf("invalid LOGIN_RATE_LIMIT: %w", err)
	}
	if cfg.Redis.LoginRateWindow, err = getEnvDuration("LOGIN_RATE_WINDOW", cfg.Redis.LoginRateWindow); err != nil {
		return fmt.Errorf("invalid LOGIN_RATE_WINDOW: %w", err)
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Kafka.Brokers = splitCSV(brokers)
	}
	cfg.Kafka.OrderTopic = getEnv("KAFKA_ORDER_TOPIC", cfg.Kafka.OrderTopic)

	return nil
}

// Validate reports the first configuration problem it finds.
func (c *Config) Validate() error {
	if c.App.Port == "" {
		return errors.New("APP_PORT must not be empty")
	}
	if c.Postgres.Host == "" {
		return errors.New("DB_HOST is required")
	}
	if c.Postgres.DBName == "" {
		return errors.New("DB_NAME is required")
	}
	if c.Postgres.MaxConns <= 0 {
		return errors.New("DB_MAX_CONNS must be > 0")
	}
	if c.Postgres.MinConns < 0 || c.Postgres.MinConns > c.Postgres.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and %d", c.Postgres.MaxConns)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.Auth.JWTExpire <= 0 {
		return errors.New("JWT_EXPIRE must be > 0")
	}
	if c.Redis.Addr != "" {
		if c.Redis.APIRateLimit <= 0 || c.Redis.LoginRateLimit <= 0 {
			return errors.New("rate limits must be > 0")
		}
		if c.Redis.APIRateWindow < time.Second || c.Redis.LoginRateWindow < time.Second {
			return errors.New("rate windows must be at least 1s")
		}
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.OrderTopic == "" {
		return errors.New("KAFKA_ORDER_TOPIC must not be empty when KAFKA_BROKERS is set")
	}
	return nil
}

// UsesDefaultSecret is true while the JWT secret was never overridden.
func (c *Config) UsesDefaultSecret() bool {
	return c.Auth.JWTSecret == defaultJWTSecret
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
