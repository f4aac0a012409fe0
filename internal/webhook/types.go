package webhook

import (
	"context"
	"net/http"
	"time"
)

//go:generate mockgen -destination=mocks/mock_delivery_log.go -package=mocks github.com/mattjoyce/hookgate/internal/webhook DeliveryLog

// DeliveryLog records raw deliveries keyed by a sanitized delivery ID.
// Failures are logged by the server and never change the response.
type DeliveryLog interface {
	Record(ctx context.Context, id string, header http.Header, body []byte) error
	Annotate(ctx context.Context, id, line string) error
}

// Config holds the gateway configuration. The server keeps its own copy and
// never modifies it.
type Config struct {
	// Listen is the address the HTTP server binds to.
	Listen string

	// Path is the only accepted URL path (exact, case-sensitive).
	Path string

	// Secret is the HMAC secret shared with GitHub. Never logged.
	Secret []byte

	// TargetURI receives forwarded deliveries. Empty disables forwarding.
	TargetURI string

	// MaxBodySize is the maximum accepted request body in bytes.
	MaxBodySize int64

	// ConnectTimeout bounds connection establishment to TargetURI.
	ConnectTimeout time.Duration

	// ForwardTimeout bounds the whole outbound exchange.
	ForwardTimeout time.Duration

	// TrustProxyHeaders enables chi's RealIP middleware.
	TrustProxyHeaders bool
}

// GitHub delivery headers.
const (
	HeaderDelivery     = "X-GitHub-Delivery"
	HeaderEvent        = "X-GitHub-Event"
	HeaderSignature256 = "X-Hub-Signature-256"
)

// DeliveryResponse is the JSON body for accepted deliveries. It is
// diagnostic only; callers should rely on the status code.
type DeliveryResponse struct {
	Status   string `json:"status"`
	Delivery string `json:"delivery,omitempty"`
	Event    string `json:"event,omitempty"`
	Bytes    int    `json:"bytes"`
	Rule     string `json:"rule,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Delivery statuses reported in DeliveryResponse.
const (
	StatusForwarded  = "forwarded"
	StatusSuppressed = "suppressed"
	StatusAccepted   = "accepted"
)

// ErrorResponse is the JSON response for webhook errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Default values
const (
	DefaultMaxBodySize    = 25 * 1024 * 1024 // GitHub caps payloads at 25 MB
	DefaultConnectTimeout = 5 * time.Second
	DefaultForwardTimeout = 30 * time.Second
)
