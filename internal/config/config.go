// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	BackendURL     string `mapstructure:"BACKEND_URL"`
	AnonKey        string `mapstructure:"ANON_KEY"`
	ImagesBucket   string `mapstructure:"IMAGES_BUCKET"`
	VideosBucket   string `mapstructure:"VIDEOS_BUCKET"`
	AvatarsBucket  string `mapstructure:"AVATARS_BUCKET"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	SessionFile    string `mapstructure:"SESSION_FILE"`
	FeedPageSize   int    `mapstructure:"FEED_PAGE_SIZE"`
	SearchDebounce int    `mapstructure:"SEARCH_DEBOUNCE_MS"`
	RequestTimeout int    `mapstructure:"REQUEST_TIMEOUT_MS"`
	Env            string `mapstructure:"APP_ENV"`
	TracingEnabled bool   `mapstructure:"TRACING_ENABLED"`
	TraceExporter  string `mapstructure:"TRACE_EXPORTER"`
	OTLPEndpoint   string `mapstructure:"OTLP_ENDPOINT"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The config file is optional; env vars alone are a valid setup.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	viper.SetDefault("BACKEND_URL", "http://localhost:54321")
	viper.SetDefault("ANON_KEY", "")
	viper.SetDefault("IMAGES_BUCKET", "images")
	viper.SetDefault("VIDEOS_BUCKET", "videos")
	viper.SetDefault("AVATARS_BUCKET", "avatars")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("SESSION_FILE", ".glasswing-session.json")
	viper.SetDefault("FEED_PAGE_SIZE", 25)
	viper.SetDefault("SEARCH_DEBOUNCE_MS", 300)
	viper.SetDefault("REQUEST_TIMEOUT_MS", 15000)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACE_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("BACKEND_URL is required")
	}
	if c.FeedPageSize <= 0 {
		return errors.New("FEED_PAGE_SIZE must be positive")
	}
	if c.SearchDebounce < 0 {
		return errors.New("SEARCH_DEBOUNCE_MS must not be negative")
	}

	isProduction := c.Env == "production" || c.Env == "prod"
	if isProduction {
		if c.AnonKey == "" {
			return errors.New("ANON_KEY is required in production")
		}
	} else if c.AnonKey == "" {
		log.Println("WARNING: ANON_KEY is empty; requests will be sent unauthenticated")
	}

	return nil
}

// DebounceWindow returns the configured search debounce as a duration.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.SearchDebounce) * time.Millisecond
}

// HTTPTimeout returns the configured backend request timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}
