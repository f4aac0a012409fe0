package webhook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattjoyce/hookgate/internal/config"
)

// FromGlobalConfig converts the loaded configuration to webhook.Config.
func FromGlobalConfig(c *config.Config) (Config, error) {
	if c == nil {
		return Config{}, fmt.Errorf("config is nil")
	}
	if c.Filter.Secret == "" {
		return Config{}, fmt.Errorf("filter.secret is required")
	}

	maxBodySize, err := parseMaxBodySize(c.Server.MaxBodySize)
	if err != nil {
		return Config{}, fmt.Errorf("server.max_body_size %q: %w", c.Server.MaxBodySize, err)
	}

	return Config{
		Listen:            c.Server.Listen,
		Path:              c.Filter.Path,
		Secret:            []byte(c.Filter.Secret),
		TargetURI:         c.Filter.TargetURI,
		MaxBodySize:       maxBodySize,
		ConnectTimeout:    c.Forward.ConnectTimeout,
		ForwardTimeout:    c.Forward.Timeout,
		TrustProxyHeaders: c.Server.TrustProxyHeaders,
	}, nil
}

// parseMaxBodySize parses size strings like "1MB", "2048576", "512KB" to bytes.
// Returns DefaultMaxBodySize if empty.
func parseMaxBodySize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)

	switch {
	case strings.HasSuffix(upper, "KB"):
		multiplier = 1024
		upper = strings.TrimSuffix(upper, "KB")
	case strings.HasSuffix(upper, "MB"):
		multiplier = 1024 * 1024
		upper = strings.TrimSuffix(upper, "MB")
	case strings.HasSuffix(upper, "GB"):
		multiplier = 1024 * 1024 * 1024
		upper = strings.TrimSuffix(upper, "GB")
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}

	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value {
		return 0, fmt.Errorf("size too large")
	}

	return result, nil
}
