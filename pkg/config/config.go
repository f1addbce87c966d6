// Package config loads the demo server settings from an optional file,
// a .env file and MATERIAL_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig selects the store. An empty DSN uses the in-memory store.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"` // Secret: postgres connection string
}

// SessionConfig configures the cookie session store.
//
// WARNING: Key is sensitive and should not be logged.
type SessionConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	Key  string `mapstructure:"key" yaml:"key"` // Secret: cookie authentication key
}

type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Config wraps the demo server configuration.
type Config struct {
	Addr         string         `mapstructure:"addr" yaml:"addr"`
	LoginURL     string         `mapstructure:"login_url" yaml:"login_url"`
	TemplatesDir string         `mapstructure:"templates_dir" yaml:"templates_dir"`
	Database     DatabaseConfig `mapstructure:"database" yaml:"database"`
	Session      SessionConfig  `mapstructure:"session" yaml:"session"`
	Log          LogConfig      `mapstructure:"log" yaml:"log"`
}

var defaults = map[string]any{
	"addr":         ":8080",
	"login_url":    "/accounts/login/",
	"session.name": "material_session",
	"log.level":    "info",
}

// envBindings maps config keys to the environment variables providing them,
// preferred name first.
var envBindings = map[string][]string{
	"addr":            {"MATERIAL_ADDR", "PORT_ADDR"},
	"login_url":       {"MATERIAL_LOGIN_URL"},
	"templates_dir":   {"MATERIAL_TEMPLATES_DIR"},
	"database.dsn":    {"MATERIAL_DATABASE_DSN", "DATABASE_URL"},
	"session.name":    {"MATERIAL_SESSION_NAME"},
	"session.key":     {"MATERIAL_SESSION_KEY"},
	"log.level":       {"MATERIAL_LOG_LEVEL"},
	"log.development": {"MATERIAL_LOG_DEVELOPMENT"},
}

// Load reads filePath when it exists; set environment variables override
// file values. An empty path only reads the environment.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	err := v.Unmarshal(cfg)

	return cfg, err
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
