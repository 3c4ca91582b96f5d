// Package config holds the server configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries everything the server needs at startup. Values are
// resolved in order: defaults, optional YAML file, environment, flags.
type Config struct {
	Debug bool
	Port  string

	// RedisURL selects the Redis-backed player store when set; the
	// in-memory store is used otherwise.
	RedisURL string

	// APIKeys guard the websocket endpoint. Empty means open access.
	APIKeys []string

	// FrontendOrigin is the allowed websocket Origin header. Empty
	// allows any origin.
	FrontendOrigin string

	// InitialTime is the per-player time budget of a new game.
	InitialTime time.Duration
}

// fileConfig mirrors Config for YAML, with durations given as strings
// like "5m".
type fileConfig struct {
	Debug          *bool    `yaml:"debug"`
	Port           string   `yaml:"port"`
	RedisURL       string   `yaml:"redis_url"`
	APIKeys        []string `yaml:"api_keys"`
	FrontendOrigin string   `yaml:"frontend_origin"`
	InitialTime    string   `yaml:"initial_time"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Port:        "8080",
		InitialTime: 5 * time.Minute,
	}
}

// LoadFile merges a YAML config file into the receiver.
func (c *Config) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if fc.Debug != nil {
		c.Debug = *fc.Debug
	}
	if fc.Port != "" {
		c.Port = fc.Port
	}
	if fc.RedisURL != "" {
		c.RedisURL = fc.RedisURL
	}
	if len(fc.APIKeys) > 0 {
		c.APIKeys = fc.APIKeys
	}
	if fc.FrontendOrigin != "" {
		c.FrontendOrigin = fc.FrontendOrigin
	}
	if fc.InitialTime != "" {
		d, err := time.ParseDuration(fc.InitialTime)
		if err != nil {
			return fmt.Errorf("parse initial_time: %w", err)
		}
		c.InitialTime = d
	}
	return nil
}

// LoadEnv merges environment variables into the receiver.
func (c *Config) LoadEnv() error {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		c.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		c.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("FRONTEND_PATH")); v != "" {
		c.FrontendOrigin = v
	}
	if v := strings.TrimSpace(os.Getenv("API_KEYS")); v != "" {
		c.APIKeys = nil
		for _, key := range strings.Split(v, ",") {
			if key = strings.TrimSpace(key); key != "" {
				c.APIKeys = append(c.APIKeys, key)
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv("INITIAL_TIME")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse INITIAL_TIME: %w", err)
		}
		c.InitialTime = d
	}
	return nil
}
