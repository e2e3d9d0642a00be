package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config is the application configuration, loaded once and threaded
// explicitly through constructors.
type Config struct {
	Logger     Logger                  `yaml:"logger"`
	HTTPClient HTTPClient              `yaml:"http_client"`
	Scan       Scan                    `yaml:"scan"`
	VulnDB     VulnDB                  `yaml:"vulndb"`
	Models     map[string]ModelProfile `yaml:"models"`
}

// Logger holds logging settings.
type Logger struct {
	Level           string `yaml:"level"`
	JSONFormat      bool   `yaml:"json_format"`
	IncludeLocation bool   `yaml:"include_location"`
}

// HTTPClient holds settings for outbound HTTP clients.
type HTTPClient struct {
	Debug            bool          `yaml:"debug"`
	RetryCount       int           `yaml:"retry_count"`
	RetryWaitTime    time.Duration `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration `yaml:"retry_max_wait_time"`
	Timeout          time.Duration `yaml:"timeout"`
	Proxy            Proxy         `yaml:"proxy"`
}

// Proxy holds an optional outbound proxy address.
type Proxy struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// Scan holds file discovery and analysis settings.
type Scan struct {
	ExcludedDirs  []string      `yaml:"excluded_dirs"`
	ExcludedFiles []string      `yaml:"excluded_files"`
	MaxFileSizeMB int           `yaml:"max_file_size_mb"`
	Timeout       time.Duration `yaml:"timeout"`
	Jobs          int           `yaml:"jobs"`
}

// VulnDB holds rule repository settings.
type VulnDB struct {
	Home               string `yaml:"home"`
	AutoUpdate         bool   `yaml:"auto_update"`
	UpdateIntervalDays int    `yaml:"update_interval_days"`
	UpdateURL          string `yaml:"update_url"`
}

// ModelProfile describes one named analysis provider configuration.
// Provider selects the adapter variant: "openai", "deepseek", "anthropic"
// or "custom".
type ModelProfile struct {
	Provider  string                 `yaml:"provider"`
	APIKey    string                 `yaml:"api_key"`
	Model     string                 `yaml:"model"`
	MaxTokens int                    `yaml:"max_tokens"`
	BaseURL   string                 `yaml:"base_url"`
	APIURL    string                 `yaml:"api_url"`
	Headers   map[string]string      `yaml:"headers"`
	ExtraBody map[string]interface{} `yaml:"extra_body"`
	Params    map[string]interface{} `yaml:"params"`
}

// GetCodescanHome returns the base folder for persistent state. The
// CODESCAN_HOME environment variable overrides the default of ~/.codescan.
func GetCodescanHome() string {
	if env := os.Getenv("CODESCAN_HOME"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codescan"
	}
	return filepath.Join(home, ".codescan")
}

// LoadConfig reads a YAML configuration file and merges it over the defaults.
// A missing file is not an error: the defaults are returned so the scanner
// works out of the box.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		configPath = filepath.Join(GetCodescanHome(), "config.yml")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %q: %w", configPath, err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", configPath, err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// GetModelProfile resolves a named provider profile. An unknown or empty name
// falls back to the "default" profile when one exists.
func (c *Config) GetModelProfile(name string) (ModelProfile, error) {
	if name == "" {
		name = "default"
	}
	if profile, ok := c.Models[name]; ok {
		return profile, nil
	}
	if profile, ok := c.Models["default"]; ok {
		return profile, nil
	}
	return ModelProfile{}, fmt.Errorf("no model profile named %q and no default profile configured", name)
}

// SetThen provides a utility to select the first value if set, otherwise defaults.
func SetThen[T comparable](value T, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}
