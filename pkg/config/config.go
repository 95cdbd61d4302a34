// Package config loads and persists the client configuration.
//
// Sources, highest priority first:
//  1. Environment variables (NANOCHAT_SERVER_URL, NANOCHAT_API_KEY, ...)
//  2. Config file (~/.config/nanochat/config.yaml)
//  3. Defaults
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPollIntervalMS is the delay between reply polls, in milliseconds.
	DefaultPollIntervalMS = 500
	// DefaultMaxPolls bounds a single generation's polling loop.
	DefaultMaxPolls = 180

	envPrefix = "NANOCHAT"
)

// Config holds everything the client needs to talk to a NanoChat server.
type Config struct {
	ServerURL string `mapstructure:"server_url" yaml:"server_url"`
	// APIKey is sent as a bearer token. Masked in String and MarshalJSON.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	PollIntervalMS int `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	MaxPolls       int `mapstructure:"max_polls" yaml:"max_polls"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Dir returns the directory the config file lives in.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not determine home directory")
	}
	return filepath.Join(home, ".config", "nanochat"), nil
}

// Path returns the config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the configuration. A missing config file is not an error; the
// defaults plus environment overrides apply. An explicit path of "" uses the
// standard location.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("server_url", "")
	v.SetDefault("api_key", "")
	v.SetDefault("poll_interval_ms", DefaultPollIntervalMS)
	v.SetDefault("max_polls", DefaultMaxPolls)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName("config")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrap(err, "could not read config file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "could not parse config")
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PollIntervalMS <= 0 {
		c.PollIntervalMS = DefaultPollIntervalMS
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = DefaultMaxPolls
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks that the configuration is usable for talking to a server.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if c.ServerURL == "" {
		return errors.New("server_url is not set, run 'nanochat config set server_url <url>' or set NANOCHAT_SERVER_URL")
	}
	if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		return errors.Errorf("server_url %q must start with http:// or https://", c.ServerURL)
	}
	if c.APIKey == "" {
		return errors.New("api_key is not set, run 'nanochat config set api_key <key>' or set NANOCHAT_API_KEY")
	}
	return nil
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Save writes the configuration to path, creating the directory if needed.
// An empty path writes to the standard location.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := Path()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrap(err, "could not create config directory")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "could not encode config")
	}
	// The file holds the API key; keep it private.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "could not write config file")
	}
	return nil
}

// Set assigns a single key to a raw string value, the way 'config set' does.
func (c *Config) Set(key, value string) error {
	switch key {
	case "server_url":
		c.ServerURL = strings.TrimRight(value, "/")
	case "api_key":
		c.APIKey = value
	case "log_level":
		c.LogLevel = value
	case "poll_interval_ms":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return errors.Errorf("invalid value %q for %s, want a positive integer", value, key)
		}
		c.PollIntervalMS = n
	case "max_polls":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return errors.Errorf("invalid value %q for %s, want a positive integer", value, key)
		}
		c.MaxPolls = n
	default:
		return errors.Errorf("unknown config key %q", key)
	}
	return nil
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// MarshalJSON masks the API key so the config can be printed safely.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.APIKey = maskKey(a.APIKey)
	return json.Marshal(a)
}

func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return "Config{}"
	}
	return string(data)
}
