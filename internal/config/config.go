package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the relay's full configuration surface. Values come from an
// optional YAML file named by CHATRELAY_CONFIG, with environment variables
// taking precedence.
type Config struct {
	DiscordToken             string  `yaml:"discord_token"`
	GenerateURL              string  `yaml:"generate_url"`
	Model                    string  `yaml:"model"`
	Device                   string  `yaml:"device"`
	MaxLength                int     `yaml:"max_length"`
	Temperature              float64 `yaml:"temperature"`
	TopK                     int     `yaml:"top_k"`
	TopP                     float64 `yaml:"top_p"`
	DBPath                   string  `yaml:"db_path"`
	MaxConcurrentGenerations int     `yaml:"max_concurrent_generations"`
	GenerateTimeoutSeconds   int     `yaml:"generate_timeout_seconds"`
	LogLevel                 string  `yaml:"log_level"`
}

func defaults() Config {
	return Config{
		GenerateURL:              "http://127.0.0.1:8080/generate",
		Model:                    "microsoft/DialoGPT-large",
		Device:                   "auto",
		MaxLength:                1024,
		Temperature:              0.7,
		TopK:                     50,
		TopP:                     0.95,
		DBPath:                   "conversations.db",
		MaxConcurrentGenerations: 4,
		GenerateTimeoutSeconds:   120,
		LogLevel:                 "info",
	}
}

// Load reads the relay configuration.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CHATRELAY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.DiscordToken == "" {
		return Config{}, fmt.Errorf("CHATRELAY_DISCORD_TOKEN is required in environment or config file")
	}
	switch cfg.Device {
	case "auto", "gpu", "cpu":
	default:
		return Config{}, fmt.Errorf("CHATRELAY_DEVICE must be auto, gpu or cpu, got %q", cfg.Device)
	}
	if cfg.MaxLength <= 0 {
		return Config{}, fmt.Errorf("CHATRELAY_MAX_LENGTH must be positive, got %d", cfg.MaxLength)
	}
	if cfg.Temperature <= 0 {
		return Config{}, fmt.Errorf("CHATRELAY_TEMPERATURE must be positive, got %v", cfg.Temperature)
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		return Config{}, fmt.Errorf("CHATRELAY_TOP_P must be in (0, 1], got %v", cfg.TopP)
	}
	if cfg.TopK < 0 {
		return Config{}, fmt.Errorf("CHATRELAY_TOP_K must not be negative, got %d", cfg.TopK)
	}
	if cfg.MaxConcurrentGenerations < 0 {
		return Config{}, fmt.Errorf("CHATRELAY_MAX_CONCURRENT_GENERATIONS must not be negative, got %d", cfg.MaxConcurrentGenerations)
	}
	if cfg.GenerateTimeoutSeconds <= 0 {
		return Config{}, fmt.Errorf("CHATRELAY_GENERATE_TIMEOUT_SECONDS must be positive, got %d", cfg.GenerateTimeoutSeconds)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	envString(&cfg.DiscordToken, "CHATRELAY_DISCORD_TOKEN")
	envString(&cfg.GenerateURL, "CHATRELAY_GENERATE_URL")
	envString(&cfg.Model, "CHATRELAY_MODEL")
	envString(&cfg.Device, "CHATRELAY_DEVICE")
	envInt(&cfg.MaxLength, "CHATRELAY_MAX_LENGTH")
	envFloat(&cfg.Temperature, "CHATRELAY_TEMPERATURE")
	envInt(&cfg.TopK, "CHATRELAY_TOP_K")
	envFloat(&cfg.TopP, "CHATRELAY_TOP_P")
	envString(&cfg.DBPath, "CHATRELAY_DB_PATH")
	envInt(&cfg.MaxConcurrentGenerations, "CHATRELAY_MAX_CONCURRENT_GENERATIONS")
	envInt(&cfg.GenerateTimeoutSeconds, "CHATRELAY_GENERATE_TIMEOUT_SECONDS")
	envString(&cfg.LogLevel, "CHATRELAY_LOG_LEVEL")
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func envFloat(dst *float64, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}
