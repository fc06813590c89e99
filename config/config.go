package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Upload    UploadConfig    `yaml:"upload"`
	Session   SessionConfig   `yaml:"session"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Port          int `yaml:"port"`
	RatePerMinute int `yaml:"rate_per_minute"`
}

// BackendConfig describes the external document-indexing/QA service.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type UploadConfig struct {
	MaxSizeMB int `yaml:"max_size_mb"`
}

type SessionConfig struct {
	JWTSecret           string `yaml:"jwt_secret"`
	TokenExpireHours    int    `yaml:"token_expire_hours"`
	MaxSessions         int    `yaml:"max_sessions"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	HistoryWindow       int    `yaml:"history_window"`
	MaxQueryLength      int    `yaml:"max_query_length"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"` // if set, logs rotate in this file instead of stdout
}

type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RatePerMinute == 0 {
		cfg.Server.RatePerMinute = 100
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:8000"
	}
	if cfg.Backend.TimeoutSeconds == 0 {
		cfg.Backend.TimeoutSeconds = 60
	}
	if cfg.Upload.MaxSizeMB == 0 {
		cfg.Upload.MaxSizeMB = 10
	}
	if cfg.Session.TokenExpireHours == 0 {
		cfg.Session.TokenExpireHours = 24
	}
	if cfg.Session.MaxSessions == 0 {
		cfg.Session.MaxSessions = 100
	}
	if cfg.Session.PollIntervalSeconds == 0 {
		cfg.Session.PollIntervalSeconds = 10
	}
	if cfg.Session.HistoryWindow == 0 {
		cfg.Session.HistoryWindow = 5
	}
	if cfg.Session.MaxQueryLength == 0 {
		cfg.Session.MaxQueryLength = 1000
	}
	if cfg.Telemetry.Dir == "" {
		cfg.Telemetry.Dir = "logs"
	}

	return &cfg, nil
}

// MaxUploadBytes returns the upload size ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxSizeMB) * 1024 * 1024
}
