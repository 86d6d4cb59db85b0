package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jnst/fan-notification-outbox/internal/model"
)

const (
	headerContentType = "Content-Type"
	headerEventID     = "X-Event-Id"
	headerSignature   = "X-Signature"
	applicationJSON   = "application/json"
	maxErrorBodyBytes = 512
)

// BreakerSettings configures the circuit breaker around the outbound call.
type BreakerSettings struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// HTTPTransport POSTs the notification envelope as JSON to a webhook endpoint.
type HTTPTransport struct {
	endpoint      string
	timeout       time.Duration
	client        *http.Client
	authHeader    string
	authValue     string
	signingSecret string
	breaker       *gobreaker.CircuitBreaker
	logger        *slog.Logger
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithBearerToken sends "Authorization: Bearer <token>" with every request.
func WithBearerToken(token string) HTTPOption {
	return func(t *HTTPTransport) {
		if token == "" {
			return
		}

		t.authHeader = "Authorization"
		t.authValue = "Bearer " + token
	}
}

// WithSharedSecretHeader sends the secret verbatim in the named header.
func WithSharedSecretHeader(header, secret string) HTTPOption {
	return func(t *HTTPTransport) {
		if header == "" || secret == "" {
			return
		}

		t.authHeader = header
		t.authValue = secret
	}
}

// WithSigningSecret adds an X-Signature HMAC of the request body.
func WithSigningSecret(secret string) HTTPOption {
	return func(t *HTTPTransport) { t.signingSecret = secret }
}

// WithHTTPClient replaces the default client. The per-attempt timeout still applies.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTPTransport) { t.client = client }
}

// WithCircuitBreaker trips after settings.ConsecutiveFailures failed attempts
// and rejects calls without touching the network until settings.Timeout elapses.
func WithCircuitBreaker(settings BreakerSettings) HTTPOption {
	return func(t *HTTPTransport) {
		threshold := settings.ConsecutiveFailures
		if threshold == 0 {
			threshold = 1
		}

		t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "notify-endpoint",
			MaxRequests: settings.MaxRequests,
			Interval:    settings.Interval,
			Timeout:     settings.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				t.logger.Warn("circuit breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			},
		})
	}
}

// NewHTTPTransport creates a webhook transport with a bounded per-attempt timeout.
func NewHTTPTransport(endpoint string, timeout time.Duration, logger *slog.Logger, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		endpoint: endpoint,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Name identifies the transport in logs.
func (*HTTPTransport) Name() string { return "http" }

// Send performs one POST. Transport errors, timeouts, non-2xx responses and an
// open circuit are all reported as *model.DeliveryError.
func (t *HTTPTransport) Send(ctx context.Context, notification *model.Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if t.breaker == nil {
		return t.post(ctx, notification.OutboxID, body)
	}

	_, err = t.breaker.Execute(func() (interface{}, error) {
		return nil, t.post(ctx, notification.OutboxID, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &model.DeliveryError{Err: err}
	}

	return err
}

func (t *HTTPTransport) post(ctx context.Context, outboxID string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set(headerContentType, applicationJSON)
	req.Header.Set(headerEventID, outboxID)

	if t.authHeader != "" {
		req.Header.Set(t.authHeader, t.authValue)
	}

	if t.signingSecret != "" {
		req.Header.Set(headerSignature, Sign(body, t.signingSecret))
	}

	startTime := time.Now()

	resp, err := t.client.Do(req)
	if err != nil {
		return &model.DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	t.logger.Debug("notify endpoint responded",
		slog.String("event_id", outboxID),
		slog.Int("status", resp.StatusCode),
		slog.Int64("latency_ms", time.Since(startTime).Milliseconds()),
	)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		deliveryErr := &model.DeliveryError{StatusCode: resp.StatusCode}
		if msg := strings.TrimSpace(string(snippet)); msg != "" {
			deliveryErr.Err = errors.New(msg)
		}

		return deliveryErr
	}

	return nil
}
