// Package config loads rita's settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	ritaerrors "github.com/princespaghetti/rita/internal/errors"
	"github.com/princespaghetti/rita/internal/fetcher"
	"github.com/princespaghetti/rita/internal/form"
)

// DefaultServiceName identifies rita in exported traces.
const DefaultServiceName = "rita"

// Config holds the settings for a download.
type Config struct {
	// Host is the TranStats base URL or bare host name.
	Host           string        `yaml:"host"`
	UserAgent      string        `yaml:"user_agent"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// DataPath is the destination directory or bucket URL.
	DataPath     string `yaml:"data_path"`
	OTLPEndpoint string `yaml:"otlp_endpoint"` // empty disables tracing
	ServiceName  string `yaml:"service_name"`
}

// Default returns the built-in settings. Artifacts go to the OS temp
// directory unless told otherwise.
func Default() *Config {
	return &Config{
		Host:           form.DefaultHost,
		UserAgent:      form.DefaultUserAgent,
		RequestTimeout: fetcher.DefaultRequestTimeout,
		DataPath:       os.TempDir(),
		ServiceName:    DefaultServiceName,
	}
}

// DefaultPath returns ~/.rita/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".rita", "config.yaml"), nil
}

// Load reads the configuration file at path, applies environment overrides
// and validates the result. An empty path selects DefaultPath, which may be
// absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, &ritaerrors.RitaError{Op: "load config", Err: err}
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ritaerrors.RitaError{
				Op:   "load config",
				Path: path,
				Err:  fmt.Errorf("%w: %v", ritaerrors.ErrInvalidConfig, err),
			}
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No config file; defaults and environment only.
	default:
		return nil, &ritaerrors.RitaError{Op: "load config", Path: path, Err: err}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, &ritaerrors.RitaError{Op: "load config", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ritaerrors.RitaError{Op: "load config", Path: path, Err: err}
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("RITA_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("RITA_DATA_PATH"); v != "" {
		c.DataPath = v
	}
	if v := os.Getenv("RITA_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("RITA_OTLP_ENDPOINT"); v != "" {
		c.OTLPEndpoint = v
	}
	if v := os.Getenv("RITA_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: RITA_TIMEOUT: %v", ritaerrors.ErrInvalidConfig, err)
		}
		c.RequestTimeout = d
	}
	return nil
}

// Validate checks that the settings can drive a download.
func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive, got %s", ritaerrors.ErrInvalidConfig, c.RequestTimeout)
	}
	if c.DataPath == "" {
		return fmt.Errorf("%w: data_path is empty", ritaerrors.ErrInvalidConfig)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("%w: user_agent is empty", ritaerrors.ErrInvalidConfig)
	}
	if _, err := c.Endpoint(); err != nil {
		return fmt.Errorf("%w: %v", ritaerrors.ErrInvalidConfig, err)
	}
	return nil
}

// Endpoint returns the On-Time Performance endpoint on the configured host.
func (c *Config) Endpoint() (form.Endpoint, error) {
	return form.NewEndpoint(c.Host, form.OnTimeTableID)
}

// Save writes cfg to path as YAML, creating the parent directory. The file
// is replaced atomically.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return &ritaerrors.RitaError{Op: "marshal config", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &ritaerrors.RitaError{Op: "create config directory", Path: filepath.Dir(path), Err: err}
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return &ritaerrors.RitaError{Op: "write config", Path: tempPath, Err: err}
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return &ritaerrors.RitaError{Op: "write config", Path: path, Err: err}
	}
	return nil
}
