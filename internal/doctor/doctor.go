// Package doctor validates hookgate configuration beyond what loading enforces.
package doctor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mattjoyce/hookgate/internal/config"
	"github.com/mattjoyce/hookgate/internal/storage"
	"github.com/mattjoyce/hookgate/internal/webhook"
)

// GitHub abandons a delivery that has not been answered within this window.
const githubDeliveryTimeout = 10 * time.Second

const minSecretLength = 16

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateGateway(r)
	d.validateForwardLoop(r)
	d.validateDeliveryLog(r)
	d.warnForwarding(r)
	d.warnTimeouts(r)
	d.warnSecret(r)
	d.warnExposure(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateGateway checks that the config converts into a runnable gateway.
func (d *Doctor) validateGateway(r *Result) {
	wc, err := webhook.FromGlobalConfig(d.cfg)
	if err != nil {
		d.addError(r, "gateway", "", err.Error())
		return
	}
	if wc.MaxBodySize < webhook.DefaultMaxBodySize {
		d.addWarning(r, "gateway", "server.max_body_size",
			fmt.Sprintf("max_body_size %s is below GitHub's 25MB payload cap; large pushes will be rejected with 413", d.cfg.Server.MaxBodySize))
	}
}

// validateForwardLoop rejects a target that points back at the gateway route.
func (d *Doctor) validateForwardLoop(r *Result) {
	if d.cfg.Filter.TargetURI == "" {
		return
	}
	u, err := url.Parse(d.cfg.Filter.TargetURI)
	if err != nil {
		return
	}

	listenHost, listenPort, err := net.SplitHostPort(d.cfg.Server.Listen)
	if err != nil {
		return
	}
	if u.Port() != listenPort || u.Path != d.cfg.Filter.Path {
		return
	}
	if (isLoopbackOrAny(listenHost) && isLoopbackOrAny(u.Hostname())) || strings.EqualFold(listenHost, u.Hostname()) {
		d.addError(r, "forward", "filter.target_uri",
			fmt.Sprintf("target_uri %q points back at the gateway's own route", d.cfg.Filter.TargetURI))
	}
}

// validateDeliveryLog checks the delivery log path has the right shape.
func (d *Doctor) validateDeliveryLog(r *Result) {
	dl := d.cfg.DeliveryLog
	switch dl.Backend {
	case config.BackendNone:
		d.addWarning(r, "delivery_log", "delivery_log.backend",
			"delivery log disabled; raw deliveries will not be kept for inspection")
	case config.BackendFS:
		if info, err := os.Stat(dl.Path); err == nil && !info.IsDir() {
			d.addError(r, "delivery_log", "delivery_log.path",
				fmt.Sprintf("fs backend needs a directory but %s is a file", dl.Path))
		}
	case config.BackendSQLite:
		if info, err := os.Stat(dl.Path); err == nil && info.IsDir() {
			d.addError(r, "delivery_log", "delivery_log.path",
				fmt.Sprintf("sqlite backend needs a database file but %s is a directory", dl.Path))
		}
	}

	if dl.Backend == config.BackendNone {
		return
	}
	if err := storage.CheckLocalFilesystem(dl.Path); errors.Is(err, storage.ErrNetworkFilesystem) {
		if dl.Backend == config.BackendSQLite {
			d.addError(r, "delivery_log", "delivery_log.path", err.Error())
		} else {
			d.addWarning(r, "delivery_log", "delivery_log.path",
				err.Error()+"; the single-instance lock may not hold")
		}
	}
}

func (d *Doctor) warnForwarding(r *Result) {
	target := d.cfg.Filter.TargetURI
	if target == "" {
		d.addWarning(r, "forward", "filter.target_uri",
			"target_uri is empty; deliveries will be verified and logged but not forwarded")
		return
	}
	u, err := url.Parse(target)
	if err != nil {
		return
	}
	if u.Scheme == "http" && !isLoopbackOrAny(u.Hostname()) {
		d.addWarning(r, "forward", "filter.target_uri",
			fmt.Sprintf("target_uri %q sends deliveries in plaintext to a non-local host", target))
	}
}

func (d *Doctor) warnTimeouts(r *Result) {
	fc := d.cfg.Forward
	if fc.Timeout >= githubDeliveryTimeout {
		d.addWarning(r, "forward", "forward.timeout",
			fmt.Sprintf("timeout %s is not below GitHub's %s delivery timeout; GitHub may record failures for slow forwards", fc.Timeout, githubDeliveryTimeout))
	}
	if fc.ConnectTimeout > fc.Timeout {
		d.addWarning(r, "forward", "forward.connect_timeout",
			fmt.Sprintf("connect_timeout %s exceeds timeout %s and has no effect", fc.ConnectTimeout, fc.Timeout))
	}
}

func (d *Doctor) warnSecret(r *Result) {
	if n := len(d.cfg.Filter.Secret); n > 0 && n < minSecretLength {
		d.addWarning(r, "secret", "filter.secret",
			fmt.Sprintf("secret is only %d characters; use at least %d random characters", n, minSecretLength))
	}
}

// warnExposure flags proxy header trust on a listener reachable directly.
func (d *Doctor) warnExposure(r *Result) {
	if !d.cfg.Server.TrustProxyHeaders {
		return
	}
	host, _, err := net.SplitHostPort(d.cfg.Server.Listen)
	if err != nil {
		return
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		d.addWarning(r, "server", "server.trust_proxy_headers",
			"trust_proxy_headers is on while listening on all interfaces; clients can spoof their logged address")
	}
}

func isLoopbackOrAny(host string) bool {
	if host == "" || strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		writeIssue(&b, "ERROR", e)
	}
	for _, w := range r.Warnings {
		writeIssue(&b, "WARN ", w)
	}

	return b.String()
}

func writeIssue(b *strings.Builder, label string, i Issue) {
	if i.Field != "" {
		fmt.Fprintf(b, "  %s [%s] %s: %s\n", label, i.Category, i.Field, i.Message)
		return
	}
	fmt.Fprintf(b, "  %s [%s] %s\n", label, i.Category, i.Message)
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
