package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Config holds all configuration for the application. It is built once by
// Load and treated as read-only afterwards.
type Config struct {
	Port        string
	VerifyToken string
	AppSecret   string
	Channels    []string

	Store     string
	LogFile   string
	LogFormat string
	RedisURL  string
	RedisKey  string

	DatabaseURL string

	KafkaBrokers []string
	KafkaTopic   string

	AppendWorkers int
	RecentLimit   int
	LogLevel      string
}

// PrimaryChannel is the channel advertised by the service descriptor.
func (c *Config) PrimaryChannel() string {
	return c.Channels[0]
}

// fileConfig is the optional YAML file named by CONFIG_FILE. Its values are
// defaults; environment variables win.
type fileConfig struct {
	Port          string   `yaml:"port"`
	VerifyToken   string   `yaml:"verify_token"`
	AppSecret     string   `yaml:"app_secret"`
	Channels      []string `yaml:"channels"`
	Store         string   `yaml:"store"`
	LogFile       string   `yaml:"log_file"`
	LogFormat     string   `yaml:"log_format"`
	RedisURL      string   `yaml:"redis_url"`
	RedisKey      string   `yaml:"redis_key"`
	DatabaseURL   string   `yaml:"database_url"`
	AppendWorkers int      `yaml:"append_workers"`
	RecentLimit   int      `yaml:"recent_limit"`
	LogLevel      string   `yaml:"log_level"`
	Kafka         struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
}

func defaults() fileConfig {
	fc := fileConfig{
		Port:          "3000",
		Channels:      []string{"whatsapp"},
		Store:         "file",
		LogFile:       "whatsapp_logs.jsonl",
		LogFormat:     "ndjson",
		RedisKey:      "webhook_logs",
		AppendWorkers: 4,
		RecentLimit:   10,
		LogLevel:      "info",
	}
	fc.Kafka.Topic = "webhook-logs"
	return fc
}

// Load reads configuration from the optional CONFIG_FILE and environment
// variables.
func Load() (*Config, error) {
	fc := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &fc); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Port:          getEnv("PORT", fc.Port),
		VerifyToken:   getEnv("VERIFY_TOKEN", fc.VerifyToken),
		AppSecret:     getEnv("APP_SECRET", fc.AppSecret),
		Channels:      getEnvList("WEBHOOK_CHANNELS", fc.Channels),
		Store:         strings.ToLower(getEnv("LOG_STORE", fc.Store)),
		LogFile:       getEnv("LOG_FILE", fc.LogFile),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", fc.LogFormat)),
		RedisURL:      getEnv("REDIS_URL", fc.RedisURL),
		RedisKey:      getEnv("REDIS_KEY", fc.RedisKey),
		DatabaseURL:   getEnv("DATABASE_URL", fc.DatabaseURL),
		KafkaBrokers:  getEnvList("KAFKA_BROKERS", fc.Kafka.Brokers),
		KafkaTopic:    getEnv("KAFKA_TOPIC", fc.Kafka.Topic),
		AppendWorkers: getEnvInt("APPEND_WORKERS", fc.AppendWorkers),
		RecentLimit:   getEnvInt("RECENT_LIMIT", fc.RecentLimit),
		LogLevel:      getEnv("LOG_LEVEL", fc.LogLevel),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.VerifyToken == "" {
		return fmt.Errorf("VERIFY_TOKEN is required")
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port)
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("WEBHOOK_CHANNELS must name at least one channel")
	}

	switch c.Store {
	case "file":
		if c.LogFile == "" {
			return fmt.Errorf("LOG_FILE is required for the file store")
		}
		if c.LogFormat != "ndjson" && c.LogFormat != "legacy" {
			return fmt.Errorf("LOG_FORMAT must be ndjson or legacy, got %q", c.LogFormat)
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis store")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("LOG_STORE must be file, redis or postgres, got %q", c.Store)
	}

	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.RecentLimit < 1 {
		return fmt.Errorf("RECENT_LIMIT must be positive, got %d", c.RecentLimit)
	}
	return nil
}

// loadFile overlays the non-zero values of the YAML file at path onto fc.
func loadFile(path string, fc *fileConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var file fileConfig
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}

	overlay(&fc.Port, file.Port)
	overlay(&fc.VerifyToken, file.VerifyToken)
	overlay(&fc.AppSecret, file.AppSecret)
	overlay(&fc.Store, file.Store)
	overlay(&fc.LogFile, file.LogFile)
	overlay(&fc.LogFormat, file.LogFormat)
	overlay(&fc.RedisURL, file.RedisURL)
	overlay(&fc.RedisKey, file.RedisKey)
	overlay(&fc.DatabaseURL, file.DatabaseURL)
	overlay(&fc.LogLevel, file.LogLevel)
	overlay(&fc.Kafka.Topic, file.Kafka.Topic)
	overlay(&fc.AppendWorkers, file.AppendWorkers)
	overlay(&fc.RecentLimit, file.RecentLimit)
	if len(file.Channels) > 0 {
		fc.Channels = file.Channels
	}
	if len(file.Kafka.Brokers) > 0 {
		fc.Kafka.Brokers = file.Kafka.Brokers
	}
	return nil
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
