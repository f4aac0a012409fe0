package config

import "time"

// Config represents the complete hookgate configuration.
type Config struct {
	Service     ServiceConfig     `yaml:"service" json:"service"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Filter      FilterConfig      `yaml:"filter" json:"filter"`
	Forward     ForwardConfig     `yaml:"forward" json:"forward"`
	DeliveryLog DeliveryLogConfig `yaml:"delivery_log" json:"delivery_log"`

	// SourcePath is the absolute path of the file the config was loaded from.
	SourcePath string `yaml:"-" json:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name      string `yaml:"name" json:"name"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
}

// ServerConfig defines the inbound HTTP listener.
type ServerConfig struct {
	Listen string `yaml:"listen" json:"listen"`

	// TrustProxyHeaders enables X-Forwarded-For / X-Real-IP handling when
	// the gateway runs behind a reverse proxy.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers" json:"trust_proxy_headers"`

	// MaxBodySize accepts plain byte counts or KB/MB/GB suffixes.
	MaxBodySize string `yaml:"max_body_size,omitempty" json:"max_body_size,omitempty"`
}

// FilterConfig defines the accepted webhook route and where accepted
// deliveries are relayed.
type FilterConfig struct {
	// Path is the only accepted inbound URI path.
	Path string `yaml:"path" json:"path"`

	// Secret is the shared HMAC secret configured on the GitHub webhook.
	Secret string `yaml:"secret" json:"secret"`

	// TargetURI is the downstream receiver. Empty disables forwarding.
	TargetURI string `yaml:"target_uri" json:"target_uri"`
}

// ForwardConfig bounds the outbound relay request.
type ForwardConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
}

// DeliveryLogConfig selects where raw deliveries are recorded.
type DeliveryLogConfig struct {
	Backend string `yaml:"backend" json:"backend"` // fs, sqlite or none
	Path    string `yaml:"path" json:"path"`
}

// Delivery log backends.
const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "hookgate",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Server: ServerConfig{
			Listen:      "127.0.0.1:5000",
			MaxBodySize: "25MB",
		},
		Filter: FilterConfig{
			Path: "/webhook",
		},
		Forward: ForwardConfig{
			ConnectTimeout: 5 * time.Second,
			Timeout:        30 * time.Second,
		},
		DeliveryLog: DeliveryLogConfig{
			Backend: BackendFS,
			Path:    "./deliveries",
		},
	}
}
