package config

import "time"

// DefaultExcludedDirs are directory names never descended into during
// collection. Dependency and VCS folders dominate the list.
var DefaultExcludedDirs = []string{
	".git", ".svn", ".hg", ".idea", ".vscode",
	"node_modules", "vendor", "venv", ".venv", "env",
	"__pycache__", ".pytest_cache", ".mypy_cache",
	"dist", "build", "target", "bin", "obj",
}

// DefaultExcludedFiles are path suffixes excluded from scanning.
var DefaultExcludedFiles = []string{
	".min.js", ".min.css", ".map", ".lock",
	".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg",
	".woff", ".woff2", ".ttf", ".eot",
	".zip", ".tar", ".gz", ".rar", ".7z",
	".pdf", ".doc", ".docx", ".xls", ".xlsx",
	".exe", ".dll", ".so", ".dylib", ".bin",
	".pyc", ".pyo", ".class", ".o", ".a",
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Logger: Logger{
			Level: "INFO",
		},
		HTTPClient: HTTPClient{
			RetryCount:       5,
			RetryWaitTime:    1 * time.Second,
			RetryMaxWaitTime: 5 * time.Second,
			Timeout:          30 * time.Second,
		},
		Scan: Scan{
			ExcludedDirs:  DefaultExcludedDirs,
			ExcludedFiles: DefaultExcludedFiles,
			MaxFileSizeMB: 10,
			Timeout:       60 * time.Second,
			Jobs:          5,
		},
		VulnDB: VulnDB{
			AutoUpdate:         false,
			UpdateIntervalDays: 7,
		},
		Models: map[string]ModelProfile{},
	}
}

// applyDefaults fills zero values left by a partial config file.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	cfg.Logger.Level = SetThen(cfg.Logger.Level, def.Logger.Level)

	cfg.HTTPClient.RetryCount = SetThen(cfg.HTTPClient.RetryCount, def.HTTPClient.RetryCount)
	cfg.HTTPClient.RetryWaitTime = SetThen(cfg.HTTPClient.RetryWaitTime, def.HTTPClient.RetryWaitTime)
	cfg.HTTPClient.RetryMaxWaitTime = SetThen(cfg.HTTPClient.RetryMaxWaitTime, def.HTTPClient.RetryMaxWaitTime)
	cfg.HTTPClient.Timeout = SetThen(cfg.HTTPClient.Timeout, def.HTTPClient.Timeout)

	if len(cfg.Scan.ExcludedDirs) == 0 {
		cfg.Scan.ExcludedDirs = def.Scan.ExcludedDirs
	}
	if len(cfg.Scan.ExcludedFiles) == 0 {
		cfg.Scan.ExcludedFiles = def.Scan.ExcludedFiles
	}
	cfg.Scan.MaxFileSizeMB = SetThen(cfg.Scan.MaxFileSizeMB, def.Scan.MaxFileSizeMB)
	cfg.Scan.Timeout = SetThen(cfg.Scan.Timeout, def.Scan.Timeout)
	cfg.Scan.Jobs = SetThen(cfg.Scan.Jobs, def.Scan.Jobs)

	cfg.VulnDB.UpdateIntervalDays = SetThen(cfg.VulnDB.UpdateIntervalDays, def.VulnDB.UpdateIntervalDays)

	if cfg.Models == nil {
		cfg.Models = map[string]ModelProfile{}
	}
}
