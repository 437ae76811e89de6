package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/byigitt/visa-checker/internal/common"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Checker  CheckerConfig  `mapstructure:"checker"`
	API      APIConfig      `mapstructure:"api"`
	Redis    RedisConfig    `mapstructure:"redis"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Timezone string         `mapstructure:"timezone"`
}

// ServerConfig holds HTTP status server settings.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// TelegramConfig holds the bot credentials and dispatch limits.
type TelegramConfig struct {
	Token              string `mapstructure:"token"`
	ChatID             string `mapstructure:"chat_id"`
	RateLimit          int    `mapstructure:"rate_limit"`
	MaxThrottleRetries int    `mapstructure:"max_throttle_retries"`
}

// CheckerConfig holds appointment polling and filtering settings.
type CheckerConfig struct {
	IntervalSec     int      `mapstructure:"interval_sec"`
	Country         string   `mapstructure:"country"`
	MissionCodes    []string `mapstructure:"mission_codes"`
	Cities          []string `mapstructure:"cities"`
	VisaSubcategory string   `mapstructure:"visa_subcategory"`
	SeenTTLSec      int      `mapstructure:"seen_ttl_sec"`
}

// Interval returns the polling interval as a duration.
func (c CheckerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

// SeenTTL returns how long an appointment key stays in the seen store.
func (c CheckerConfig) SeenTTL() time.Duration {
	return time.Duration(c.SeenTTLSec) * time.Second
}

// APIConfig holds the upstream appointment API settings.
type APIConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// RedisConfig holds Redis connection settings for the seen store.
// An empty address means the in-memory store is used instead.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CORSConfig holds CORS policy settings for the status API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// Load reads configuration from config.yaml and environment variables.
// Environment variables use the VISA_ prefix and underscore separators.
// Example: VISA_TELEGRAM_TOKEN overrides telegram.token in config.yaml.
func Load() (*Config, error) {
	v := viper.New()

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Load .env file if it exists
	_ = godotenv.Load()

	// Environment variable settings
	v.SetEnvPrefix("VISA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("telegram.rate_limit", 15)
	v.SetDefault("telegram.max_throttle_retries", 10)
	v.SetDefault("checker.interval_sec", 300)
	v.SetDefault("checker.country", "tr")
	v.SetDefault("checker.seen_ttl_sec", 86400)
	v.SetDefault("api.base_url", "https://api.visasbot.com")
	v.SetDefault("api.requests_per_second", 1)
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type"})
	v.SetDefault("timezone", "Europe/Istanbul")

	// Read config file (optional — env vars can provide everything)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Handle comma-separated mission codes from env var
	if codesStr := v.GetString("checker.mission_codes"); codesStr != "" && len(cfg.Checker.MissionCodes) == 0 {
		codes := strings.Split(codesStr, ",")
		for i := range codes {
			codes[i] = strings.TrimSpace(codes[i])
		}
		cfg.Checker.MissionCodes = codes
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fails fast on configuration that would only surface as runtime
// misbehavior later (a zero quota would deadlock every send).
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return common.NewValidationError("telegram.token is required")
	}
	if c.Telegram.ChatID == "" {
		return common.NewValidationError("telegram.chat_id is required")
	}
	if c.Telegram.RateLimit <= 0 {
		return common.NewValidationError(fmt.Sprintf("telegram.rate_limit must be a positive integer, got %d", c.Telegram.RateLimit))
	}
	if c.Checker.IntervalSec <= 0 {
		return common.NewValidationError(fmt.Sprintf("checker.interval_sec must be positive, got %d", c.Checker.IntervalSec))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return common.NewValidationError(fmt.Sprintf("invalid timezone %q: %v", c.Timezone, err))
	}
	return nil
}
