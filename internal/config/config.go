package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	units "github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// Storage backend kinds.
const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

type Limits struct {
	MaxMemory        string `yaml:"max_memory"`         // human units, e.g. "512MB"
	MaxCPUSecs       int    `yaml:"max_cpu_secs"`       // CPU-time ceiling per execution
	MaxExecutionSecs int    `yaml:"max_execution_secs"` // wall-clock ceiling per execution
}

type StorageConfig struct {
	Backend   string `yaml:"backend"` // "local" or "gcs"
	LocalPath string `yaml:"local_path"`
	GCSBucket string `yaml:"gcs_bucket"`
}

type Config struct {
	Listen           string        `yaml:"listen"`
	APIKey           string        `yaml:"api_key"`
	AllowedLanguages []string      `yaml:"allowed_languages"`
	Storage          StorageConfig `yaml:"storage"`
	DBPath           string        `yaml:"db_path"`
	Limits           Limits        `yaml:"limits"`
	DisableNetwork   bool          `yaml:"disable_network"` // advisory, exported to executed code
	LogLevel         string        `yaml:"log_level"`
}

func Load(yamlPath string) (*Config, error) {
	cfg := &Config{
		Listen:           "127.0.0.1:8080",
		AllowedLanguages: []string{"python", "bash"},
		Storage: StorageConfig{
			Backend:   BackendLocal,
			LocalPath: "/tmp/codeexec",
		},
		DBPath: "./codeexec.db",
		Limits: Limits{
			MaxMemory:        "512MB",
			MaxCPUSecs:       30,
			MaxExecutionSecs: 30,
		},
		DisableNetwork: true,
		LogLevel:       "info",
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("storage.local_path is required for the local backend")
		}
	case BackendGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (use %q or %q)", c.Storage.Backend, BackendLocal, BackendGCS)
	}

	if len(c.AllowedLanguages) == 0 {
		return fmt.Errorf("allowed_languages must not be empty")
	}
	if _, err := c.MaxMemoryBytes(); err != nil {
		return err
	}
	if c.Limits.MaxCPUSecs <= 0 {
		return fmt.Errorf("limits.max_cpu_secs must be positive")
	}
	if c.Limits.MaxExecutionSecs <= 0 {
		return fmt.Errorf("limits.max_execution_secs must be positive")
	}
	return nil
}

// MaxMemoryBytes parses the configured memory ceiling ("512MB", "1g", ...).
func (c *Config) MaxMemoryBytes() (int64, error) {
	n, err := units.RAMInBytes(c.Limits.MaxMemory)
	if err != nil {
		return 0, fmt.Errorf("invalid limits.max_memory %q: %w", c.Limits.MaxMemory, err)
	}
	return n, nil
}

// LanguageAllowed reports whether lang is in the configured set.
func (c *Config) LanguageAllowed(lang string) bool {
	for _, l := range c.AllowedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CODEEXEC_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("CODEEXEC_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("CODEEXEC_ALLOWED_LANGS"); v != "" {
		var langs []string
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(strings.ToLower(l)); l != "" {
				langs = append(langs, l)
			}
		}
		cfg.AllowedLanguages = langs
	}
	if v := os.Getenv("CODEEXEC_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("CODEEXEC_STORAGE_PATH"); v != "" {
		cfg.Storage.LocalPath = v
	}
	if v := os.Getenv("CODEEXEC_GCS_BUCKET"); v != "" {
		cfg.Storage.GCSBucket = v
	}
	if v := os.Getenv("CODEEXEC_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CODEEXEC_MAX_MEMORY"); v != "" {
		cfg.Limits.MaxMemory = v
	}
	if v := os.Getenv("CODEEXEC_MAX_CPU_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.MaxCPUSecs = n
		}
	}
	if v := os.Getenv("CODEEXEC_MAX_EXECUTION_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.MaxExecutionSecs = n
		}
	}
	if v := os.Getenv("CODEEXEC_DISABLE_NETWORK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DisableNetwork = b
		}
	}
	if v := os.Getenv("CODEEXEC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PORT"); v != "" {
		// Cloud Run sets PORT; override the listen port only.
		host := cfg.Listen
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		cfg.Listen = host + ":" + v
	}
}
