package mllp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/hl7engine/internal/platform/telemetry"
)

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("mllp: server closed")

// Handler processes one payload and returns the response to frame back, or
// nil for none.
type Handler interface {
	ServeMLLP(ctx context.Context, payload []byte) ([]byte, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, payload []byte) ([]byte, error)

func (f HandlerFunc) ServeMLLP(ctx context.Context, payload []byte) ([]byte, error) {
	return f(ctx, payload)
}

// Config configures a Server.
type Config struct {
	Addr           string
	MaxMessageSize int
	// ReadTimeout closes a connection that sends nothing for this long.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
}

// Server accepts MLLP connections and dispatches each frame to a Handler.
// Frames on one connection are handled in order.
type Server struct {
	cfg     Config
	handler Handler
	logger  zerolog.Logger
	metrics *telemetry.Metrics

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	closing  atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a server. metrics may be nil.
func NewServer(cfg Config, h Handler, logger zerolog.Logger, metrics *telemetry.Metrics) *Server {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		handler: h,
		logger:  logger.With().Str("component", "mllp-server").Logger(),
		metrics: metrics,
		conns:   make(map[net.Conn]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Listen binds the configured address without serving, so Addr reports the
// chosen port before Serve runs.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("mllp: failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// ListenAndServe binds and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Serve runs the accept loop on the bound listener. It blocks until the
// listener fails or Shutdown is called, in which case it returns
// ErrServerClosed.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("mllp: Serve called before Listen")
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("MLLP listener started")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			return fmt.Errorf("mllp: accept: %w", err)
		}
		if !s.track(conn) {
			conn.Close()
			continue
		}
		go func() {
			defer s.untrack(conn)
			defer conn.Close()
			s.serveConn(conn)
		}()
	}
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Shutdown stops accepting connections and waits for in-flight frames to be
// answered. Idle connections are closed at once. When ctx expires first,
// remaining connections are closed and ctx.Err is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for conn := range s.conns {
		// Unblocks idle reads; a frame being handled still gets its answer.
		conn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.cancel()
		return err
	case <-ctx.Done():
		s.cancel()
		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()
		<-done
		return ctx.Err()
	}
}

// track registers conn and counts it in wg under the same lock Shutdown
// takes, so Shutdown either refuses it or waits for it.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing.Load() {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	s.metrics.ConnOpened()
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.metrics.ConnClosed()
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) serveConn(conn net.Conn) {
	log := s.logger.With().Str("remote", conn.RemoteAddr().String()).Logger()
	log.Debug().Msg("connection opened")
	defer log.Debug().Msg("connection closed")

	r := NewReader(conn, s.cfg.MaxMessageSize)
	w := NewWriter(conn)
	for {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		// Checked after the deadline so a concurrent Shutdown cannot be missed.
		if s.closing.Load() {
			return
		}
		payload, err := r.ReadMessage()
		if err != nil {
			var ne net.Error
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			case errors.As(err, &ne) && ne.Timeout():
				if !s.closing.Load() {
					log.Debug().Msg("idle timeout")
				}
			default:
				log.Warn().Err(err).Msg("read failed")
			}
			return
		}
		s.metrics.Frame("in")

		resp, err := s.handler.ServeMLLP(s.ctx, payload)
		if err != nil {
			log.Error().Err(err).Msg("handler failed")
			continue
		}
		if resp == nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err := w.WriteMessage(resp); err != nil {
			log.Warn().Err(err).Msg("write failed")
			return
		}
		s.metrics.Frame("out")
	}
}
