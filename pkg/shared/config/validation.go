package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidateConfig checks that loaded configuration values are usable.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML config: configuration object is nil")
	}
	if err := validateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML config: http_client directive is invalid: %w", err)
	}
	if err := validateScanConfig(&cfg.Scan); err != nil {
		return fmt.Errorf("YAML config: scan directive is invalid: %w", err)
	}
	if err := validateVulnDBConfig(&cfg.VulnDB); err != nil {
		return fmt.Errorf("YAML config: vulndb directive is invalid: %w", err)
	}
	for name, profile := range cfg.Models {
		if err := validateModelProfile(name, profile); err != nil {
			return fmt.Errorf("YAML config: models directive is invalid: %w", err)
		}
	}
	return nil
}

func validateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig.RetryCount < 0 || httpConfig.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", httpConfig.RetryCount)
	}
	durations := map[string]time.Duration{
		"retry_wait_time":     httpConfig.RetryWaitTime,
		"retry_max_wait_time": httpConfig.RetryMaxWaitTime,
		"timeout":             httpConfig.Timeout,
	}
	for name, d := range durations {
		if err := validateDuration(d, name, 10*time.Minute); err != nil {
			return err
		}
	}
	return nil
}

func validateScanConfig(scan *Scan) error {
	if scan.MaxFileSizeMB < 1 {
		return fmt.Errorf("max_file_size_mb must be positive: %d", scan.MaxFileSizeMB)
	}
	if scan.Jobs < 1 {
		return fmt.Errorf("jobs must be positive: %d", scan.Jobs)
	}
	return validateDuration(scan.Timeout, "timeout", 1*time.Hour)
}

func validateVulnDBConfig(vulndb *VulnDB) error {
	if vulndb.UpdateIntervalDays < 0 {
		return fmt.Errorf("update_interval_days cannot be negative: %d", vulndb.UpdateIntervalDays)
	}
	if vulndb.AutoUpdate && vulndb.UpdateURL == "" {
		return fmt.Errorf("auto_update requires update_url to be set")
	}
	return nil
}

func validateModelProfile(name string, profile ModelProfile) error {
	switch strings.ToLower(profile.Provider) {
	case "openai", "deepseek", "anthropic":
	case "custom":
		if profile.APIURL == "" {
			return fmt.Errorf("profile %q: provider custom requires api_url", name)
		}
	case "":
		return fmt.Errorf("profile %q: provider is required", name)
	default:
		return fmt.Errorf("profile %q: unsupported provider %q", name, profile.Provider)
	}
	return nil
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %s: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%s duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}
