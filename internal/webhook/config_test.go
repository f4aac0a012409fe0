package webhook

import (
	"testing"
	"time"

	"github.com/mattjoyce/hookgate/internal/config"
)

func TestParseMaxBodySize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"", DefaultMaxBodySize, false},
		{"1024", 1024, false},
		{"512KB", 512 * 1024, false},
		{"25MB", 25 * 1024 * 1024, false},
		{"1gb", 1024 * 1024 * 1024, false},
		{" 2 MB ", 2 * 1024 * 1024, false},
		{"0", 0, true},
		{"-1MB", 0, true},
		{"lots", 0, true},
		{"9999999999999GB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseMaxBodySize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMaxBodySize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseMaxBodySize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFromGlobalConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Filter.Secret = "s3cret"
	cfg.Filter.TargetURI = "http://127.0.0.1:8080/hook"
	cfg.Server.TrustProxyHeaders = true
	cfg.Forward.Timeout = 10 * time.Second

	got, err := FromGlobalConfig(cfg)
	if err != nil {
		t.Fatalf("FromGlobalConfig() error = %v", err)
	}
	if got.Listen != "127.0.0.1:5000" || got.Path != "/webhook" {
		t.Errorf("listen/path = %q %q", got.Listen, got.Path)
	}
	if string(got.Secret) != "s3cret" {
		t.Errorf("Secret not carried over")
	}
	if got.TargetURI != cfg.Filter.TargetURI {
		t.Errorf("TargetURI = %q", got.TargetURI)
	}
	if got.MaxBodySize != 25*1024*1024 {
		t.Errorf("MaxBodySize = %d", got.MaxBodySize)
	}
	if got.ConnectTimeout != 5*time.Second || got.ForwardTimeout != 10*time.Second {
		t.Errorf("timeouts = %v %v", got.ConnectTimeout, got.ForwardTimeout)
	}
	if !got.TrustProxyHeaders {
		t.Error("TrustProxyHeaders not carried over")
	}
}

func TestFromGlobalConfigErrors(t *testing.T) {
	if _, err := FromGlobalConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}

	cfg := config.Defaults()
	if _, err := FromGlobalConfig(cfg); err == nil {
		t.Error("expected error for missing secret")
	}

	cfg.Filter.Secret = "s"
	cfg.Server.MaxBodySize = "huge"
	if _, err := FromGlobalConfig(cfg); err == nil {
		t.Error("expected error for bad max_body_size")
	}
}
