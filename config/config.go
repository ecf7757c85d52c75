// Package config provides configuration management for the ledger service.
// It loads configuration from an optional YAML file, environment variables,
// and .env files, with environment variables taking precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DBConfig configures the SQLite store.
type DBConfig struct {
	Path string `yaml:"path"`
}

// KafkaConfig configures the entry-committed event stream. Publishing is
// disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration. Order of precedence, lowest to highest:
// defaults, YAML file (when path is non-empty), environment variables.
// A .env file in the working directory is loaded first if present.
func Load(yamlPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		DB: DBConfig{
			Path: "./data/cargolink.db",
		},
		Kafka: KafkaConfig{
			Topic: "ledger.entry_committed",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if addr := os.Getenv("LEDGER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if path := os.Getenv("LEDGER_DB_PATH"); path != "" {
		cfg.DB.Path = path
	}
	if brokers := os.Getenv("LEDGER_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitAndTrim(brokers)
	}
	if topic := os.Getenv("LEDGER_KAFKA_TOPIC"); topic != "" {
		cfg.Kafka.Topic = topic
	}
	if level := os.Getenv("LEDGER_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if timeout, err := parseSecondsEnv("LEDGER_SHUTDOWN_TIMEOUT_SECONDS"); err != nil {
		return nil, err
	} else if timeout > 0 {
		cfg.Server.ShutdownTimeout = timeout
	}

	return cfg, nil
}

func parseSecondsEnv(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
