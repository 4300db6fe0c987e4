// Package webhook forwards accepted HL7 messages to an HTTP endpoint as
// signed JSON.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/hl7engine/internal/platform/forward"
)

// Headers set on every delivery.
const (
	SignatureHeader = "X-HL7-Signature"
	EventIDHeader   = "X-HL7-Event-ID"
	TimestampHeader = "X-HL7-Timestamp"
)

// SignPayload returns the hex HMAC-SHA256 of payload under secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature header value ("sha256=<hex>" or bare
// hex) against payload.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(signature, "sha256=")))
}

// Config configures a Publisher.
type Config struct {
	URL    string
	Secret string
	// Timeout bounds one HTTP attempt.
	Timeout time.Duration
	// RetryDelays are the waits between attempts; its length is the number
	// of retries.
	RetryDelays []time.Duration
	Client      *http.Client
}

// Publisher POSTs each event to one URL. Network errors, 429 and 5xx
// responses are retried; other 4xx responses fail at once.
type Publisher struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
	now    func() time.Time
}

// New validates cfg and creates a publisher.
func New(cfg Config, logger zerolog.Logger) (*Publisher, error) {
	if err := validateURL(cfg.URL); err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryDelays == nil {
		cfg.RetryDelays = []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Publisher{
		cfg:    cfg,
		client: client,
		logger: logger.With().Str("component", "forward-webhook").Str("url", cfg.URL).Logger(),
		now:    time.Now,
	}, nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", rawURL)
	}
	return nil
}

// StatusError is a non-2xx response from the endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook: endpoint answered %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Publish delivers e, retrying until it succeeds, fails permanently or ctx
// is done.
func (p *Publisher) Publish(ctx context.Context, e forward.Event) error {
	payload, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("webhook: encode event: %w", err)
	}
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = p.deliver(ctx, e.ID, payload)
		if lastErr == nil {
			return nil
		}
		var se *StatusError
		if errors.As(lastErr, &se) && !se.retryable() {
			return lastErr
		}
		if attempt >= len(p.cfg.RetryDelays) {
			break
		}
		p.logger.Warn().Err(lastErr).Int("attempt", attempt+1).Str("control_id", e.ControlID).Msg("webhook delivery failed, retrying")
		select {
		case <-ctx.Done():
			return fmt.Errorf("webhook: %w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(p.cfg.RetryDelays[attempt]):
		}
	}
	return lastErr
}

func (p *Publisher) deliver(ctx context.Context, id string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventIDHeader, id)
	req.Header.Set(TimestampHeader, p.now().UTC().Format(time.RFC3339))
	if p.cfg.Secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+SignPayload(payload, p.cfg.Secret))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}

// Close releases idle connections.
func (p *Publisher) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
