package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config top-level struct
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Rates     RatesConfig     `yaml:"rates"`
	Worker    WorkerConfig    `yaml:"worker"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the task-result backend.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	StatusTTL time.Duration `yaml:"status_ttl"`
}

type KafkaConfig struct {
	Brokers        []string      `yaml:"brokers"`
	Topic          string        `yaml:"topic"`
	DLQTopic       string        `yaml:"dlq_topic"`
	GroupID        string        `yaml:"group_id"`
	EnqueueTimeout time.Duration `yaml:"enqueue_timeout"`
}

// RatesConfig points at the external currency-rate provider.
type RatesConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	TargetCurrency string        `yaml:"target_currency"`
	Timeout        time.Duration `yaml:"timeout"`
}

type WorkerConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

// Load reads yaml file and applies env overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// override secrets from env if present
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		cfg.Postgres.DSN = cfg.Postgres.DSN + " password=" + pw
	}
	if key := os.Getenv("RATES_API_KEY"); key != "" {
		cfg.Rates.APIKey = key
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Kafka.EnqueueTimeout == 0 {
		c.Kafka.EnqueueTimeout = 5 * time.Second
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "transaction-workers"
	}
	if c.Kafka.DLQTopic == "" {
		c.Kafka.DLQTopic = c.Kafka.Topic + ".dlq"
	}
	if c.Redis.StatusTTL == 0 {
		c.Redis.StatusTTL = 24 * time.Hour
	}
	if c.Rates.Timeout == 0 {
		c.Rates.Timeout = 10 * time.Second
	}
	if c.Worker.MaxAttempts == 0 {
		c.Worker.MaxAttempts = 3
	}
	if c.Worker.RetryBackoff == 0 {
		c.Worker.RetryBackoff = time.Second
	}
}

// Validate fails fast on any missing connection or credential so a broken
// deployment dies at startup instead of erroring per request.
func (c *Config) Validate() error {
	var missing []string
	if c.Postgres.DSN == "" {
		missing = append(missing, "postgres.dsn")
	}
	if len(c.Kafka.Brokers) == 0 {
		missing = append(missing, "kafka.brokers")
	}
	if c.Kafka.Topic == "" {
		missing = append(missing, "kafka.topic")
	}
	if c.Redis.Addr == "" {
		missing = append(missing, "redis.addr")
	}
	if c.Rates.BaseURL == "" {
		missing = append(missing, "rates.base_url")
	}
	if c.Rates.APIKey == "" {
		missing = append(missing, "rates.api_key")
	}
	if c.Rates.TargetCurrency == "" {
		missing = append(missing, "rates.target_currency")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
