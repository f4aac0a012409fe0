package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// maxDrainBytes bounds how much of the downstream response is read so the
// connection can be reused.
const maxDrainBytes = 64 * 1024

// Outcome classifies a forwarding attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTimeout
	OutcomeConnectFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeConnectFailure:
		return "connect_failure"
	default:
		return "unknown"
	}
}

// ForwardResult describes one forwarding attempt. StatusCode is set only
// on success; any downstream status counts as success.
type ForwardResult struct {
	Outcome    Outcome
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Forwarder relays deliveries to the downstream receiver.
type Forwarder struct {
	client *http.Client
}

// ForwarderOption customizes a Forwarder.
type ForwarderOption func(*forwarderOptions)

type forwarderOptions struct {
	dialContext func(ctx context.Context, network, addr string) (net.Conn, error)
}

// WithDialContext replaces the dialer used for outbound connections.
func WithDialContext(dial func(ctx context.Context, network, addr string) (net.Conn, error)) ForwarderOption {
	return func(o *forwarderOptions) {
		o.dialContext = dial
	}
}

// NewForwarder returns a Forwarder whose connection attempts are bounded by
// connectTimeout and whole exchanges by timeout. Redirects are not followed.
func NewForwarder(connectTimeout, timeout time.Duration, opts ...ForwarderOption) *Forwarder {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if timeout <= 0 {
		timeout = DefaultForwardTimeout
	}

	dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}
	o := forwarderOptions{dialContext: dialer.DialContext}
	for _, opt := range opts {
		opt(&o)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         o.dialContext,
		TLSHandshakeTimeout: connectTimeout,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Forwarder{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Forward POSTs body with header to targetURI. The result is never an
// error value; transport failures are reported through Outcome.
func (f *Forwarder) Forward(ctx context.Context, targetURI string, header http.Header, body []byte) ForwardResult {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURI, bytes.NewReader(body))
	if err != nil {
		return ForwardResult{
			Outcome: OutcomeConnectFailure,
			Err:     fmt.Errorf("build forward request: %w", err),
		}
	}
	if header != nil {
		req.Header = header.Clone()
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return ForwardResult{
			Outcome:  classifyTransportError(err),
			Duration: time.Since(start),
			Err:      err,
		}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	return ForwardResult{
		Outcome:    OutcomeSuccess,
		StatusCode: resp.StatusCode,
		Duration:   time.Since(start),
	}
}

// Close releases idle downstream connections.
func (f *Forwarder) Close() {
	f.client.CloseIdleConnections()
}

func classifyTransportError(err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return OutcomeTimeout
	}
	return OutcomeConnectFailure
}
