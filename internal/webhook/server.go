package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mattjoyce/hookgate/internal/deliverylog"
)

var errSignatureMismatch = errors.New("signature mismatch")

// Server represents the webhook HTTP server.
type Server struct {
	config     Config
	deliveries DeliveryLog
	forwarder  *Forwarder
	logger     *slog.Logger
	router     http.Handler
	server     *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithForwarder replaces the default Forwarder built from the config.
func WithForwarder(f *Forwarder) Option {
	return func(s *Server) {
		s.forwarder = f
	}
}

// New creates a new webhook server instance. deliveries may be nil to
// disable the delivery log.
func New(config Config, deliveries DeliveryLog, logger *slog.Logger, opts ...Option) *Server {
	config.Secret = bytes.Clone(config.Secret)
	if config.MaxBodySize == 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.ForwardTimeout == 0 {
		config.ForwardTimeout = DefaultForwardTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:     config,
		deliveries: deliveries,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.forwarder == nil {
		s.forwarder = NewForwarder(config.ConnectTimeout, config.ForwardTimeout)
	}
	s.router = s.setupRoutes()
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.config.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.config.ForwardTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("webhook server starting",
		"listen", s.config.Listen,
		"path", s.config.Path,
		"forwarding", s.config.TargetURI != "",
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ForwardTimeout+5*time.Second)
		defer cancel()
		err := s.server.Shutdown(shutdownCtx)
		s.forwarder.Close()
		if err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// setupRoutes configures the HTTP router. Unknown paths and other methods
// are rejected before the body is read.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if s.config.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, newError(KindRouteNotFound, nil))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", http.MethodPost)
		s.respondError(w, newError(KindMethodNotAllowed, nil))
	})
	r.Post(s.config.Path, s.handleWebhook)

	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
			"delivery", r.Header.Get(HeaderDelivery),
		)
	})
}

// handleWebhook handles POST requests on the configured path.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	resp, err := s.processDelivery(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// processDelivery runs the accepted-route pipeline: size limit, signature,
// delivery log, classification, then forwarding.
func (s *Server) processDelivery(r *http.Request) (*DeliveryResponse, error) {
	ctx := r.Context()

	body, err := s.readBody(r)
	if err != nil {
		return nil, err
	}

	if !VerifySignature(s.config.Secret, body, signatureFromHeader(r.Header)) {
		s.logger.Warn("webhook signature verification failed",
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		return nil, newError(KindAuthenticationFailed, errSignatureMismatch)
	}

	id := r.Header.Get(HeaderDelivery)
	event := r.Header.Get(HeaderEvent)
	logger := s.logger.With("delivery", id, "event", event)
	logged := s.record(ctx, logger, id, r.Header, body)

	payload, err := ParsePayload(body)
	if err != nil {
		logger.Warn("webhook payload is not valid JSON", "error", err)
		s.annotate(ctx, logger, logged, id, "rejected: malformed JSON body")
		return nil, newError(KindMalformedBody, err)
	}

	resp := &DeliveryResponse{Delivery: id, Event: event, Bytes: len(body)}

	verdict := Classify(event, payload)
	if verdict.Suppress {
		logger.Info("webhook delivery suppressed", "rule", verdict.Rule, "reason", verdict.Reason)
		s.annotate(ctx, logger, logged, id, "suppressed: "+verdict.Reason)
		resp.Status = StatusSuppressed
		resp.Rule = verdict.Rule
		resp.Reason = verdict.Reason
		return resp, nil
	}

	if s.config.TargetURI == "" {
		logger.Info("webhook delivery accepted, forwarding disabled")
		s.annotate(ctx, logger, logged, id, "accepted: forwarding disabled")
		resp.Status = StatusAccepted
		resp.Reason = "forwarding disabled"
		return resp, nil
	}

	// The relay completes even if GitHub hangs up first.
	result := s.forwarder.Forward(context.WithoutCancel(ctx), s.config.TargetURI, ProjectHeaders(r.Header), body)
	switch result.Outcome {
	case OutcomeSuccess:
		logger.Info("webhook delivery forwarded",
			"downstream_status", result.StatusCode,
			"duration_ms", result.Duration.Milliseconds(),
		)
		s.annotate(ctx, logger, logged, id, fmt.Sprintf("forwarded: downstream status %d", result.StatusCode))
		resp.Status = StatusForwarded
		return resp, nil
	case OutcomeTimeout:
		logger.Error("webhook forward timed out",
			"duration_ms", result.Duration.Milliseconds(),
			"error", result.Err,
		)
		s.annotate(ctx, logger, logged, id, "forward failed: timeout")
		return nil, newError(KindDownstreamTimeout, result.Err)
	default:
		logger.Error("webhook forward failed",
			"duration_ms", result.Duration.Milliseconds(),
			"error", result.Err,
		)
		s.annotate(ctx, logger, logged, id, "forward failed: downstream unreachable")
		return nil, newError(KindDownstreamUnreachable, result.Err)
	}
}

// readBody reads at most MaxBodySize bytes of the request body.
func (s *Server) readBody(r *http.Request) ([]byte, error) {
	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, newError(KindMalformedBody, fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > s.config.MaxBodySize {
		return nil, newError(KindPayloadTooLarge, fmt.Errorf("body exceeds %d bytes", s.config.MaxBodySize))
	}
	return body, nil
}

// record stores the raw delivery when the ID is safe to use as a key.
// Failures are logged and never affect the response.
func (s *Server) record(ctx context.Context, logger *slog.Logger, id string, header http.Header, body []byte) bool {
	if s.deliveries == nil || !deliverylog.ValidDeliveryID(id) {
		return false
	}
	if err := s.deliveries.Record(ctx, id, header, body); err != nil {
		logger.Warn("failed to record delivery", "error", err)
		return false
	}
	return true
}

func (s *Server) annotate(ctx context.Context, logger *slog.Logger, logged bool, id, line string) {
	if !logged {
		return
	}
	if err := s.deliveries.Annotate(context.WithoutCancel(ctx), id, line); err != nil {
		logger.Warn("failed to annotate delivery", "error", err)
	}
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

// respondError maps err to its status code. Errors outside the taxonomy
// are reported as 500 without detail.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	var gerr *Error
	if !errors.As(err, &gerr) {
		s.logger.Error("webhook request failed", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	s.respondJSON(w, gerr.Kind.Status(), ErrorResponse{Error: gerr.Kind.Message()})
}
