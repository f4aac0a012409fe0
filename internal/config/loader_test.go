package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
		checkFn func(t *testing.T, cfg *Config)
	}{
		{
			name: "minimal valid config gets defaults",
			yaml: `
filter:
  secret: "12345678"
`,
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Filter.Path != "/webhook" {
					t.Errorf("filter.path = %q, want default /webhook", cfg.Filter.Path)
				}
				if cfg.Server.Listen != "127.0.0.1:5000" {
					t.Errorf("server.listen = %q", cfg.Server.Listen)
				}
				if cfg.Server.MaxBodySize != "25MB" {
					t.Errorf("server.max_body_size = %q", cfg.Server.MaxBodySize)
				}
				if cfg.Forward.ConnectTimeout != 5*time.Second || cfg.Forward.Timeout != 30*time.Second {
					t.Errorf("forward timeouts not defaulted: %+v", cfg.Forward)
				}
				if cfg.DeliveryLog.Backend != BackendFS || cfg.DeliveryLog.Path != "./deliveries" {
					t.Errorf("delivery_log not defaulted: %+v", cfg.DeliveryLog)
				}
				if cfg.Filter.TargetURI != "" {
					t.Errorf("target_uri should stay empty, got %q", cfg.Filter.TargetURI)
				}
			},
		},
		{
			name: "full config",
			yaml: `
service:
  name: appledb-filter
  log_level: debug
  log_format: text
server:
  listen: 0.0.0.0:8088
  trust_proxy_headers: true
  max_body_size: 1MB
filter:
  path: /hooks/github
  secret: s3cret
  target_uri: https://builder.example.com/hook
forward:
  connect_timeout: 2s
  timeout: 10s
delivery_log:
  backend: sqlite
  path: /var/lib/hookgate/deliveries.db
`,
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Service.Name != "appledb-filter" || cfg.Service.LogFormat != "text" {
					t.Errorf("service not parsed: %+v", cfg.Service)
				}
				if !cfg.Server.TrustProxyHeaders {
					t.Error("trust_proxy_headers not parsed")
				}
				if cfg.Filter.Path != "/hooks/github" || cfg.Filter.TargetURI != "https://builder.example.com/hook" {
					t.Errorf("filter not parsed: %+v", cfg.Filter)
				}
				if cfg.Forward.ConnectTimeout != 2*time.Second || cfg.Forward.Timeout != 10*time.Second {
					t.Errorf("forward not parsed: %+v", cfg.Forward)
				}
				if cfg.DeliveryLog.Backend != BackendSQLite {
					t.Errorf("delivery_log.backend = %q", cfg.DeliveryLog.Backend)
				}
			},
		},
		{
			name: "sqlite backend gets its own default path",
			yaml: `
filter:
  secret: x
delivery_log:
  backend: sqlite
`,
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.DeliveryLog.Path != "./data/deliveries.db" {
					t.Errorf("delivery_log.path = %q", cfg.DeliveryLog.Path)
				}
			},
		},
		{
			name: "env var interpolation",
			yaml: `
filter:
  secret: ${HOOKGATE_TEST_SECRET}
  target_uri: ${HOOKGATE_TEST_TARGET}
`,
			env: map[string]string{
				"HOOKGATE_TEST_SECRET": "from-env",
				"HOOKGATE_TEST_TARGET": "http://127.0.0.1:9000/in",
			},
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Filter.Secret != "from-env" {
					t.Errorf("secret not interpolated: %q", cfg.Filter.Secret)
				}
				if cfg.Filter.TargetURI != "http://127.0.0.1:9000/in" {
					t.Errorf("target_uri not interpolated: %q", cfg.Filter.TargetURI)
				}
			},
		},
		{
			name: "missing env var fails validation",
			yaml: `
filter:
  secret: ${HOOKGATE_TEST_UNSET_SECRET}
`,
			wantErr: "${HOOKGATE_TEST_UNSET_SECRET} is not set",
		},
		{
			name:    "missing secret",
			yaml:    "filter:\n  path: /webhook\n",
			wantErr: "filter.secret is required",
		},
		{
			name:    "relative target uri",
			yaml:    "filter:\n  secret: x\n  target_uri: /relative\n",
			wantErr: "filter.target_uri",
		},
		{
			name:    "non-http target uri",
			yaml:    "filter:\n  secret: x\n  target_uri: ftp://example.com/x\n",
			wantErr: "scheme must be http or https",
		},
		{
			name:    "path without leading slash",
			yaml:    "filter:\n  secret: x\n  path: webhook\n",
			wantErr: "must start with '/'",
		},
		{
			name:    "path with route pattern",
			yaml:    "filter:\n  secret: x\n  path: /hooks/{id}\n",
			wantErr: "route patterns",
		},
		{
			name:    "invalid log level",
			yaml:    "service:\n  log_level: loud\nfilter:\n  secret: x\n",
			wantErr: "service.log_level",
		},
		{
			name:    "invalid log format",
			yaml:    "service:\n  log_format: xml\nfilter:\n  secret: x\n",
			wantErr: "service.log_format",
		},
		{
			name:    "unknown delivery log backend",
			yaml:    "filter:\n  secret: x\ndelivery_log:\n  backend: s3\n",
			wantErr: "delivery_log.backend",
		},
		{
			name:    "negative timeout",
			yaml:    "filter:\n  secret: x\nforward:\n  timeout: -1s\n",
			wantErr: "forward.timeout must be positive",
		},
		{
			name:    "malformed yaml",
			yaml:    "filter: [unclosed\n",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, t.TempDir(), tt.yaml)

			cfg, err := Load(path)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Load() succeeded, want error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Load() error = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.SourcePath != path {
				t.Errorf("SourcePath = %q, want %q", cfg.SourcePath, path)
			}
			if tt.checkFn != nil {
				tt.checkFn(t, cfg)
			}
		})
	}
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "filter:\n  secret: x\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load(dir) error = %v", err)
	}
	if cfg.SourcePath != filepath.Join(dir, "config.yaml") {
		t.Errorf("SourcePath = %q", cfg.SourcePath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("Load() error = %v, want not found", err)
	}
}

func TestLoadVerifiesChecksums(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "filter:\n  secret: x\n")

	if _, err := GenerateChecksumsWithReport(dir, []string{"config.yaml"}, false); err != nil {
		t.Fatalf("GenerateChecksumsWithReport() error = %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load() with matching checksums error = %v", err)
	}

	if err := os.WriteFile(path, []byte("filter:\n  secret: tampered\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "config verification failed") {
		t.Fatalf("Load() error = %v, want verification failure", err)
	}
}

func TestLoadRejectsManifestWithoutEntry(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "filter:\n  secret: x\n")
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("a: b\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := GenerateChecksumsWithReport(dir, []string{"other.yaml"}, false); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "has no hash in checksums") {
		t.Fatalf("Load() error = %v, want missing hash", err)
	}
}

func TestDiscoverConfigDirFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOOKGATE_CONFIG_DIR", dir)

	got, err := DiscoverConfigDir()
	if err != nil {
		t.Fatalf("DiscoverConfigDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("DiscoverConfigDir() = %q, want %q", got, dir)
	}
}

func TestValidateTargetURI(t *testing.T) {
	valid := []string{"http://localhost:8080/hook", "https://example.com/a?b=c"}
	for _, raw := range valid {
		if err := ValidateTargetURI(raw); err != nil {
			t.Errorf("ValidateTargetURI(%q) error = %v", raw, err)
		}
	}
	invalid := []string{"example.com/hook", "/hook", "mailto:a@example.com", "http://", "://bad"}
	for _, raw := range invalid {
		if err := ValidateTargetURI(raw); err == nil {
			t.Errorf("ValidateTargetURI(%q) succeeded, want error", raw)
		}
	}
}
