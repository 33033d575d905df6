package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env         string     `yaml:"env" env:"PULSE_ENV" env-default:"local"`
	StoragePath string     `yaml:"storage_path" env:"PULSE_STORAGE_PATH" env-default:"./data/pulse.db"`
	Log         Log        `yaml:"log"`
	HTTP        HTTP       `yaml:"http"`
	Analytics   Analytics  `yaml:"analytics"`
	Pagination  Pagination `yaml:"pagination"`
}

type Log struct {
	Level  string `yaml:"level" env:"PULSE_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"PULSE_LOG_FORMAT" env-default:"json"`
}

type HTTP struct {
	Host            string        `yaml:"host" env:"PULSE_HTTP_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"PULSE_HTTP_PORT" env-default:"3001"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"PULSE_HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"PULSE_HTTP_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"PULSE_HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"PULSE_HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

func (h HTTP) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

type Analytics struct {
	// Timezone used for calendar-day bucketing and period boundaries.
	Timezone string `yaml:"timezone" env:"PULSE_ANALYTICS_TIMEZONE" env-default:"UTC"`
}

type Pagination struct {
	DefaultLimit int `yaml:"default_limit" env:"PULSE_PAGINATION_DEFAULT_LIMIT" env-default:"10"`
	MaxLimit     int `yaml:"max_limit" env:"PULSE_PAGINATION_MAX_LIMIT" env-default:"100"`
}

// LoadConfig reads path, then applies environment overrides. A missing file
// is not an error: defaults and environment are used instead.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
			return cfg.checked()
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return cfg.checked()
}

func (c Config) checked() (*Config, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the configuration with every default applied and no
// environment overrides.
func Default() *Config {
	return &Config{
		Env:         "local",
		StoragePath: "./data/pulse.db",
		Log:         Log{Level: "info", Format: "json"},
		HTTP: HTTP{
			Host:            "localhost",
			Port:            3001,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Analytics:  Analytics{Timezone: "UTC"},
		Pagination: Pagination{DefaultLimit: 10, MaxLimit: 100},
	}
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Location resolves the analytics timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Analytics.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid analytics timezone %q: %w", c.Analytics.Timezone, err)
	}
	return loc, nil
}

func (c *Config) validate() error {
	if c.StoragePath == "" {
		return fmt.Errorf("storage_path is required")
	}
	if c.Pagination.DefaultLimit <= 0 || c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		return fmt.Errorf("invalid pagination limits: default %d, max %d", c.Pagination.DefaultLimit, c.Pagination.MaxLimit)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
