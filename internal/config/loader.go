package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file or a directory holding
// config.yaml. Defaults are applied before validation.
func Load(configPath string) (*Config, error) {
	absPath, err := ResolveConfigFile(configPath)
	if err != nil {
		return nil, err
	}

	if err := verifyConfigHash(absPath); err != nil {
		return nil, err
	}

	cfg, err := loadConfigFile(absPath)
	if err != nil {
		return nil, err
	}
	cfg.SourcePath = absPath

	cfg = applyConfigDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ResolveConfigFile turns a file or directory argument into the absolute
// path of the config file.
func ResolveConfigFile(configPath string) (string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}
	return absPath, nil
}

// DiscoverConfigDir finds the config directory by checking standard locations.
// Priority order: $HOOKGATE_CONFIG_DIR, ~/.config/hookgate, /etc/hookgate, ./config.yaml
func DiscoverConfigDir() (string, error) {
	if dir := os.Getenv("HOOKGATE_CONFIG_DIR"); dir != "" {
		if _, err := os.Stat(dir); err == nil {
			return dir, nil
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfigDir := filepath.Join(homeDir, ".config", "hookgate")
		if _, err := os.Stat(userConfigDir); err == nil {
			return userConfigDir, nil
		}
	}

	systemConfigDir := "/etc/hookgate"
	if _, err := os.Stat(systemConfigDir); err == nil {
		return systemConfigDir, nil
	}

	localConfigPath := "./config.yaml"
	if _, err := os.Stat(localConfigPath); err == nil {
		return localConfigPath, nil
	}

	return "", fmt.Errorf("no config found (checked: $HOOKGATE_CONFIG_DIR, ~/.config/hookgate, /etc/hookgate, ./config.yaml)")
}

// loadConfigFile loads and parses a single config file.
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &cfg, nil
}

// verifyConfigHash checks the config file against .checksums in its
// directory. A missing manifest skips verification.
func verifyConfigHash(path string) error {
	dir := filepath.Dir(path)
	checksums, err := LoadChecksums(dir)
	if errors.Is(err, ErrChecksumsNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	basename := filepath.Base(path)
	expectedHash, ok := checksums.Hashes[basename]
	if !ok {
		return fmt.Errorf("config file %s has no hash in checksums at %s\n"+
			"Run: hookgate config lock --config %s", basename, dir, path)
	}

	if err := VerifyFileHash(path, expectedHash); err != nil {
		return fmt.Errorf("config verification failed for %s: %w\n"+
			"This indicates tampering or unauthorized modification.\n"+
			"If you edited this file intentionally, run: hookgate config lock --config %s", path, err, path)
	}
	return nil
}

// applyConfigDefaults merges default values into config where not explicitly set.
func applyConfigDefaults(cfg *Config) *Config {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.LogFormat == "" {
		cfg.Service.LogFormat = defaults.Service.LogFormat
	}

	if cfg.Server.Listen == "" {
		cfg.Server.Listen = defaults.Server.Listen
	}
	if cfg.Server.MaxBodySize == "" {
		cfg.Server.MaxBodySize = defaults.Server.MaxBodySize
	}

	if cfg.Filter.Path == "" {
		cfg.Filter.Path = defaults.Filter.Path
	}

	if cfg.Forward.ConnectTimeout == 0 {
		cfg.Forward.ConnectTimeout = defaults.Forward.ConnectTimeout
	}
	if cfg.Forward.Timeout == 0 {
		cfg.Forward.Timeout = defaults.Forward.Timeout
	}

	if cfg.DeliveryLog.Backend == "" {
		cfg.DeliveryLog.Backend = defaults.DeliveryLog.Backend
	}
	if cfg.DeliveryLog.Path == "" && cfg.DeliveryLog.Backend != BackendNone {
		switch cfg.DeliveryLog.Backend {
		case BackendSQLite:
			cfg.DeliveryLog.Path = "./data/deliveries.db"
		default:
			cfg.DeliveryLog.Path = defaults.DeliveryLog.Path
		}
	}

	return cfg
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}

		// Left in place so validation can name the missing variable.
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if cfg.Service.LogFormat != "json" && cfg.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be one of: json, text (got %q)", cfg.Service.LogFormat)
	}

	if strings.TrimSpace(cfg.Server.Listen) == "" {
		return fmt.Errorf("server.listen is required")
	}

	if err := ValidateListenPath(cfg.Filter.Path); err != nil {
		return fmt.Errorf("filter.path: %w", err)
	}

	if err := checkUnresolved("filter.secret", cfg.Filter.Secret); err != nil {
		return err
	}
	if cfg.Filter.Secret == "" {
		return fmt.Errorf("filter.secret is required")
	}

	if cfg.Filter.TargetURI != "" {
		if err := checkUnresolved("filter.target_uri", cfg.Filter.TargetURI); err != nil {
			return err
		}
		if err := ValidateTargetURI(cfg.Filter.TargetURI); err != nil {
			return fmt.Errorf("filter.target_uri: %w", err)
		}
	}

	if cfg.Forward.ConnectTimeout <= 0 {
		return fmt.Errorf("forward.connect_timeout must be positive")
	}
	if cfg.Forward.Timeout <= 0 {
		return fmt.Errorf("forward.timeout must be positive")
	}

	switch cfg.DeliveryLog.Backend {
	case BackendFS, BackendSQLite:
		if strings.TrimSpace(cfg.DeliveryLog.Path) == "" {
			return fmt.Errorf("delivery_log.path is required for backend %q", cfg.DeliveryLog.Backend)
		}
	case BackendNone:
	default:
		return fmt.Errorf("delivery_log.backend must be one of: fs, sqlite, none (got %q)", cfg.DeliveryLog.Backend)
	}

	return nil
}

// ValidateListenPath checks that path can be served as a single exact route.
func ValidateListenPath(path string) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must start with '/' (got %q)", path)
	}
	if strings.ContainsAny(path, "{}*") {
		return fmt.Errorf("path must be a literal path without route patterns (got %q)", path)
	}
	return nil
}

// ValidateTargetURI checks that raw is an absolute http(s) URL.
func ValidateTargetURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("must be an absolute URL (got %q)", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https (got %q)", u.Scheme)
	}
	return nil
}

func checkUnresolved(field, value string) error {
	if matches := envVarPattern.FindStringSubmatch(value); len(matches) > 1 {
		return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
	}
	return nil
}
