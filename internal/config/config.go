package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configDirName  = ".agenda"
	configFileName = "config.yaml"
	envPrefix      = "AGENDA"
)

const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

const (
	DefaultAPIBaseURL      = "http://localhost:8080/api"
	DefaultTimezone        = "America/Bogota"
	DefaultDurationMinutes = 60
	DefaultHTTPTimeout     = 30
	DefaultLogLevel        = "error"
	DefaultListen          = "127.0.0.1:8080"
)

// Config is the CLI configuration stored in ~/.agenda/config.yaml.
// Every key can be overridden by an AGENDA_<KEY> environment variable.
type Config struct {
	APIBaseURL             string `mapstructure:"api_base_url" yaml:"api_base_url"`
	Timezone               string `mapstructure:"timezone" yaml:"timezone"`
	Backend                string `mapstructure:"backend" yaml:"backend"`
	DataDir                string `mapstructure:"data_dir" yaml:"data_dir"`
	DefaultDurationMinutes int    `mapstructure:"default_duration_minutes" yaml:"default_duration_minutes"`
	HTTPTimeoutSeconds     int    `mapstructure:"http_timeout_seconds" yaml:"http_timeout_seconds"`
	LogLevel               string `mapstructure:"log_level" yaml:"log_level"`
	Listen                 string `mapstructure:"listen" yaml:"listen"`
	// ServerToken, when set, is required as a bearer token by `agenda serve`.
	ServerToken string `mapstructure:"server_token" yaml:"server_token,omitempty"`
}

// Dir returns ~/.agenda.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDirName), nil
}

// GetConfigPath returns the path to ~/.agenda/config.yaml.
func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in zero values so partially written files still work.
func (c *Config) Normalize() {
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	switch strings.ToLower(c.Backend) {
	case BackendLocal:
		c.Backend = BackendLocal
	default:
		c.Backend = BackendRemote
	}
	if c.DataDir == "" {
		if dir, err := Dir(); err == nil {
			c.DataDir = filepath.Join(dir, "data")
		} else {
			c.DataDir = filepath.Join(configDirName, "data")
		}
	}
	if c.DefaultDurationMinutes <= 0 {
		c.DefaultDurationMinutes = DefaultDurationMinutes
	}
	if c.HTTPTimeoutSeconds <= 0 {
		c.HTTPTimeoutSeconds = DefaultHTTPTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
}

// DefaultDuration returns the configured default event length.
func (c *Config) DefaultDuration() time.Duration {
	return time.Duration(c.DefaultDurationMinutes) * time.Minute
}

// HTTPTimeout returns the configured HTTP client timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// LoadConfig reads ~/.agenda/config.yaml, a .env file in the working
// directory and AGENDA_* environment variables, in increasing priority.
// A missing config file is not an error.
func LoadConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Load reads the configuration from path.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("api_base_url", defaults.APIBaseURL)
	v.SetDefault("timezone", defaults.Timezone)
	v.SetDefault("backend", defaults.Backend)
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("default_duration_minutes", defaults.DefaultDurationMinutes)
	v.SetDefault("http_timeout_seconds", defaults.HTTPTimeoutSeconds)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("listen", defaults.Listen)
	v.SetDefault("server_token", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// SaveConfig writes cfg to ~/.agenda/config.yaml.
func SaveConfig(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return Save(path, cfg)
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".agenda-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
