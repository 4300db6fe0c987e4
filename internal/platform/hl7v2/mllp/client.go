package mllp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/ehr/hl7engine/internal/platform/telemetry"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	Addr           string
	DialTimeout    time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int

	// Breaker settings. The circuit opens after FailureThreshold consecutive
	// failures and half-opens after OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func (c *ClientConfig) applyDefaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
}

// Client sends messages to one MLLP peer over a persistent connection. It
// is safe for concurrent use; sends are serialized so each acknowledgment
// matches its message.
type Client struct {
	cfg     ClientConfig
	cb      *gobreaker.CircuitBreaker
	logger  zerolog.Logger
	metrics *telemetry.Metrics

	mu     sync.Mutex
	conn   net.Conn
	reader *Reader
}

// NewClient creates a client. The connection is dialed on first Send.
func NewClient(cfg ClientConfig, logger zerolog.Logger, metrics *telemetry.Metrics) *Client {
	cfg.applyDefaults()
	c := &Client{
		cfg:     cfg,
		logger:  logger.With().Str("component", "mllp-client").Str("addr", cfg.Addr).Logger(),
		metrics: metrics,
	}
	name := "mllp:" + cfg.Addr
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			c.metrics.BreakerState(name, int(to))
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about the peer.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c
}

// Send frames raw, writes it and returns the peer's response payload.
func (c *Client) Send(ctx context.Context, raw []byte) ([]byte, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, raw)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("mllp: %s unavailable: %w", c.cfg.Addr, err)
		}
		return nil, err
	}
	return out.([]byte), nil
}

// State returns the circuit breaker state.
func (c *Client) State() gobreaker.State { return c.cb.State() }

// Close closes the connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropLocked()
}

func (c *Client) roundTrip(ctx context.Context, raw []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		d := net.Dialer{Timeout: c.cfg.DialTimeout}
		conn, err := d.DialContext(ctx, "tcp", c.cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("mllp: dial %s: %w", c.cfg.Addr, err)
		}
		c.conn, c.reader = conn, NewReader(conn, c.cfg.MaxMessageSize)
	}

	deadline := time.Now().Add(c.cfg.ReadTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetDeadline(deadline)
	conn := c.conn
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if err := NewWriter(c.conn).WriteMessage(raw); err != nil {
		c.dropLocked()
		return nil, ctxErr(ctx, fmt.Errorf("mllp: write: %w", err))
	}
	c.metrics.Frame("out")
	resp, err := c.reader.ReadMessage()
	if err != nil {
		// The stream position is unknown after a failed read.
		c.dropLocked()
		return nil, ctxErr(ctx, fmt.Errorf("mllp: read acknowledgment: %w", err))
	}
	c.metrics.Frame("in")
	return resp, nil
}

func (c *Client) dropLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn, c.reader = nil, nil
	return err
}

// ctxErr attributes an I/O error to ctx when ctx is done or its deadline,
// which was also the connection deadline, has passed.
func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w: %v", cerr, err)
	}
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}
