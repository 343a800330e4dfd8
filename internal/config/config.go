// Package config loads the domsync server configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/domsync/internal/logging"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
// It uses "mapstructure" tags to match the keys of the YAML file.
type Config struct {
	Listen          string        `json:"listen" mapstructure:"listen"`
	FlushInterval   time.Duration `json:"flush_interval" mapstructure:"flush_interval"`
	EchoSuppression bool          `json:"echo_suppression" mapstructure:"echo_suppression"`

	Log       LogConfig       `json:"log" mapstructure:"log"`
	Redis     RedisConfig     `json:"redis" mapstructure:"redis"`
	Websocket WebsocketConfig `json:"websocket" mapstructure:"websocket"`
	Metrics   MetricsConfig   `json:"metrics" mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// RedisConfig bridges the hub to other hubs through a pub/sub topic.
type RedisConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
	Topic   string `json:"topic" mapstructure:"topic"`
}

type WebsocketConfig struct {
	WriteTimeout time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	PingInterval time.Duration `json:"ping_interval" mapstructure:"ping_interval"`
	ReadLimit    int64         `json:"read_limit" mapstructure:"read_limit"`
}

type MetricsConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:        ":8080",
		FlushInterval: 100 * time.Millisecond,
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
		Redis: RedisConfig{
			Addr:  "localhost:6379",
			Topic: "domsync:scene",
		},
		Websocket: WebsocketConfig{
			WriteTimeout: 5 * time.Second,
			ReadTimeout:  60 * time.Second,
			PingInterval: 25 * time.Second,
			ReadLimit:    16 << 20,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads a configuration file (YAML or JSON) over the defaults.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := Parse(data, filepath.Ext(path), &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data into cfg, leaving keys absent from data untouched.
// Durations accept Go syntax ("250ms", "5s").
func Parse(data []byte, ext string, cfg *Config) error {
	raw := map[string]any{}
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return cfg.Validate()
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen must not be empty"))
	}
	if c.FlushInterval <= 0 {
		errs = append(errs, fmt.Errorf("flush_interval must be positive, got %v", c.FlushInterval))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("log.format must be %q or %q, got %q", logging.FormatText, logging.FormatJSON, c.Log.Format))
	}
	if c.Redis.Enabled && (c.Redis.Addr == "" || c.Redis.Topic == "") {
		errs = append(errs, errors.New("redis.addr and redis.topic are required when redis is enabled"))
	}
	if c.Websocket.WriteTimeout < 0 || c.Websocket.ReadTimeout < 0 || c.Websocket.PingInterval < 0 {
		errs = append(errs, errors.New("websocket timeouts must not be negative"))
	}
	return multierr.Combine(errs...)
}
