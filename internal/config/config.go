package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/michaelbrown/playground/internal/piston"
	"github.com/michaelbrown/playground/internal/runner"
)

type PistonConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	MaxRetries        int           `mapstructure:"max_retries"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type RunnerConfig struct {
	Mode string `mapstructure:"mode"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type NATSConfig struct {
	// URL is empty when progress fan-out is disabled.
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	Silent      bool   `mapstructure:"silent"`
}

type Config struct {
	Piston  PistonConfig  `mapstructure:"piston"`
	Runner  RunnerConfig  `mapstructure:"runner"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Log     LogConfig     `mapstructure:"log"`
}

// Load reads playground.yaml from the working directory or
// $HOME/.playground, or file when it is non-empty. Every key can be
// overridden with a PLAYGROUND_ environment variable, e.g.
// PLAYGROUND_PISTON_BASE_URL. A missing config file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("playground")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.playground")
	}

	v.SetEnvPrefix("PLAYGROUND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("piston.base_url", piston.DefaultBaseURL)
	v.SetDefault("piston.max_retries", 3)
	v.SetDefault("piston.timeout", 30*time.Second)
	v.SetDefault("piston.requests_per_second", 0)
	v.SetDefault("runner.mode", string(runner.ModeSequential))
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("storage.db_path", filepath.Join(os.Getenv("HOME"), ".playground", "playground.db"))
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "playground.runs")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.silent", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Expand ${VAR} references in endpoints
	cfg.Piston.BaseURL = expandEnv(cfg.Piston.BaseURL)
	cfg.NATS.URL = expandEnv(cfg.NATS.URL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	return s
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Piston.BaseURL == "" {
		return errors.New("piston.base_url must be set")
	}
	if c.Piston.MaxRetries < 0 {
		return fmt.Errorf("piston.max_retries must not be negative, got %d", c.Piston.MaxRetries)
	}
	if c.Piston.RequestsPerSecond < 0 {
		return fmt.Errorf("piston.requests_per_second must not be negative, got %g", c.Piston.RequestsPerSecond)
	}
	if _, err := runner.ParseMode(c.Runner.Mode); err != nil {
		return fmt.Errorf("runner.mode: %w", err)
	}
	return nil
}

// RunMode returns the configured scheduling mode.
func (c *Config) RunMode() runner.Mode {
	m, _ := runner.ParseMode(c.Runner.Mode)
	return m
}

// PistonOptions translates the piston section into client options.
func (c *Config) PistonOptions() []piston.Option {
	opts := []piston.Option{
		piston.WithMaxRetries(c.Piston.MaxRetries),
		piston.WithTimeout(c.Piston.Timeout),
	}
	if c.Piston.RequestsPerSecond > 0 {
		opts = append(opts, piston.WithRateLimit(c.Piston.RequestsPerSecond))
	}
	return opts
}
