// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	ReliefWeb  ReliefWebConfig  `yaml:"reliefweb"`
	FileStore  FileStoreConfig  `yaml:"filestore"`
	Storage    StorageConfig    `yaml:"storage"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Processing ProcessingConfig `yaml:"processing"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

// ReliefWebConfig contains the upstream API client configuration
type ReliefWebConfig struct {
	BaseURL string `yaml:"base_url"`
	AppName string `yaml:"app_name"`
}

// FileStoreConfig contains artifact store backend configuration
type FileStoreConfig struct {
	Type     string `yaml:"type"`     // "filesystem" (default), "s3" or "memory"
	BaseDir  string `yaml:"base_dir"` // filesystem backend
	Bucket   string `yaml:"bucket"`   // s3 backend
	Region   string `yaml:"region"`
	Prefix   string `yaml:"prefix"`
	Endpoint string `yaml:"endpoint"` // custom endpoint for MinIO compatibility
}

// Params returns the provider registry parameter map.
func (c FileStoreConfig) Params() map[string]string {
	return map[string]string{
		"base_dir": c.BaseDir,
		"bucket":   c.Bucket,
		"region":   c.Region,
		"prefix":   c.Prefix,
		"endpoint": c.Endpoint,
	}
}

// StorageConfig contains job store backend configuration
type StorageConfig struct {
	Type string `yaml:"type"` // "memory" (default), "sqlite" or "postgres"
	Path string `yaml:"path"` // sqlite backend
	DSN  string `yaml:"dsn"`  // postgres backend
}

// Params returns the provider registry parameter map.
func (c StorageConfig) Params() map[string]string {
	return map[string]string{
		"path": c.Path,
		"dsn":  c.DSN,
	}
}

// SchedulerConfig contains background job configuration
type SchedulerConfig struct {
	JobTTL time.Duration `yaml:"job_ttl"` // how long finished jobs are kept
}

// ProcessingConfig contains PDF processing configuration
type ProcessingConfig struct {
	Workers int `yaml:"workers"` // concurrent PDF extractions
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 120 * time.Second,
		},
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// applyEnvOverrides lets the environment win over file config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RELIEFWEB_BASE_URL"); v != "" {
		cfg.ReliefWeb.BaseURL = v
	}
	if v := os.Getenv("RELIEFWEB_APP_NAME"); v != "" {
		cfg.ReliefWeb.AppName = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.FileStore.BaseDir = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.FileStore.Bucket = v
		cfg.FileStore.Type = "s3"
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Storage.DSN = v
		cfg.Storage.Type = "postgres"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.ReliefWeb.BaseURL == "" {
		cfg.ReliefWeb.BaseURL = "https://api.reliefweb.int/v1"
	}
	if cfg.ReliefWeb.AppName == "" {
		cfg.ReliefWeb.AppName = "reliefweb-ingest"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "filesystem"
	}
	if cfg.FileStore.BaseDir == "" {
		cfg.FileStore.BaseDir = "./reliefweb_data"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.Scheduler.JobTTL == 0 {
		cfg.Scheduler.JobTTL = 24 * time.Hour
	}
	if cfg.Processing.Workers == 0 {
		cfg.Processing.Workers = 4
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 120 * time.Second
	}
}
