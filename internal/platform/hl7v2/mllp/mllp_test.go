package mllp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testADT = "MSH|^~\\&|SendApp|SendFac|RecvApp|RecvFac|20240115120000||ADT^A01|MSG001|P|2.5.1\rPID|||12345||Smith^John||19800101|M"

// =========== Framing Tests ===========

func TestFrame(t *testing.T) {
	raw := []byte("MSH|^~\\&|A|B|||20240115||ADT^A01|C1|P|2.5.1")
	framed := Frame(raw)
	if framed[0] != StartBlock {
		t.Errorf("expected first byte 0x0B, got 0x%02X", framed[0])
	}
	if !bytes.HasSuffix(framed, []byte{EndBlock, CarriageReturn}) {
		t.Errorf("expected trailing FS CR, got % X", framed[len(framed)-2:])
	}
	if !bytes.Equal(framed[1:len(framed)-2], raw) {
		t.Error("inner bytes do not match original")
	}
}

func TestUnframe(t *testing.T) {
	data := append([]byte("noise"), Frame([]byte("one"))...)
	data = append(data, Frame([]byte("two"))...)
	data = append(data, StartBlock, 't')

	var got []string
	rest := data
	for {
		msg, r, found := Unframe(rest)
		if !found {
			break
		}
		got = append(got, string(msg))
		rest = r
	}
	if diff := cmp.Diff([]string{"one", "two"}, got); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
	if !bytes.Equal(rest, []byte{StartBlock, 't'}) {
		t.Errorf("expected partial frame left over, got %q", rest)
	}
	if _, _, found := Unframe([]byte("no start block here")); found {
		t.Error("expected found=false when no start block present")
	}
}

func TestReader(t *testing.T) {
	var stream bytes.Buffer
	stream.WriteString("\r\n")
	stream.Write(Frame([]byte(testADT)))
	stream.Write(Frame([]byte("second")))
	r := NewReader(&stream, 0)

	for _, want := range []string{testADT, "second"} {
		got, err := r.ReadMessage()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
	if _, err := r.ReadMessage(); err != io.EOF {
		t.Errorf("expected io.EOF between frames, got %v", err)
	}
}

func TestReader_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		max  int
		want error
	}{
		{"truncated", []byte{StartBlock, 'M', 'S', 'H'}, 0, io.ErrUnexpectedEOF},
		{"truncated after end block", []byte{StartBlock, 'M', EndBlock}, 0, io.ErrUnexpectedEOF},
		{"bad trailer", []byte{StartBlock, 'M', EndBlock, 'x'}, 0, ErrBadFrame},
		{"too large", Frame([]byte("0123456789")), 4, ErrMessageTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(bytes.NewReader(tt.data), tt.max).ReadMessage()
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestReader_RestartsOnNewStartBlock(t *testing.T) {
	data := append([]byte{StartBlock, 'l', 'o', 's', 't'}, Frame([]byte("kept"))...)
	got, err := NewReader(bytes.NewReader(data), 0).ReadMessage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "kept" {
		t.Errorf("expected kept, got %q", got)
	}
}

// =========== Server Tests ===========

func startServer(t *testing.T, cfg Config, h Handler) *Server {
	t.Helper()
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	s := NewServer(cfg, h, zerolog.Nop(), nil)
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- s.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Shutdown(ctx)
		if err := <-done; !errors.Is(err, ErrServerClosed) {
			t.Errorf("expected ErrServerClosed, got %v", err)
		}
	})
	return s
}

func ackHandler(received *[]string, mu *sync.Mutex) HandlerFunc {
	return func(_ context.Context, payload []byte) ([]byte, error) {
		mu.Lock()
		*received = append(*received, string(payload))
		mu.Unlock()
		return append([]byte("ACK:"), payload[:3]...), nil
	}
}

func newClient(addr string) *Client {
	return NewClient(ClientConfig{Addr: addr, ReadTimeout: 5 * time.Second}, zerolog.Nop(), nil)
}

func TestServer_SendAndReceive(t *testing.T) {
	var mu sync.Mutex
	var received []string
	s := startServer(t, Config{}, ackHandler(&received, &mu))

	c := newClient(s.Addr())
	defer c.Close()
	for i := 0; i < 3; i++ {
		ack, err := c.Send(context.Background(), []byte(testADT))
		if err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
		if string(ack) != "ACK:MSH" {
			t.Errorf("unexpected ack %q", ack)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 || received[0] != testADT {
		t.Errorf("expected three messages, got %q", received)
	}
}

func TestServer_MultipleConnections(t *testing.T) {
	var mu sync.Mutex
	var received []string
	s := startServer(t, Config{}, ackHandler(&received, &mu))

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newClient(s.Addr())
			defer c.Close()
			if _, err := c.Send(context.Background(), []byte(testADT)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Send failed: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(received) != 5 {
		t.Errorf("expected 5 messages, got %d", len(received))
	}
}

func TestServer_NoResponse(t *testing.T) {
	handled := make(chan struct{}, 1)
	s := startServer(t, Config{}, HandlerFunc(func(context.Context, []byte) ([]byte, error) {
		handled <- struct{}{}
		return nil, nil
	}))
	conn, err := net.DialTimeout("tcp", s.Addr(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	if err := NewWriter(conn).WriteMessage([]byte(testADT)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, err := NewReader(conn, 0).ReadMessage(); err == nil {
		t.Error("expected no response")
	}
}

func TestServer_OversizedMessageClosesConnection(t *testing.T) {
	s := startServer(t, Config{MaxMessageSize: 16}, HandlerFunc(func(_ context.Context, p []byte) ([]byte, error) {
		return p, nil
	}))
	conn, err := net.DialTimeout("tcp", s.Addr(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	NewWriter(conn).WriteMessage([]byte(strings.Repeat("x", 64)))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if ack, err := NewReader(conn, 0).ReadMessage(); err == nil {
		t.Errorf("expected connection closed, got %q", ack)
	}
}

func TestServer_ShutdownWaitsForInFlight(t *testing.T) {
	started, release := make(chan struct{}), make(chan struct{})
	s := NewServer(Config{Addr: "127.0.0.1:0"}, HandlerFunc(func(context.Context, []byte) ([]byte, error) {
		close(started)
		<-release
		return []byte("done"), nil
	}), zerolog.Nop(), nil)
	if err := s.Listen(); err != nil {
		t.Fatal(err)
	}
	served := make(chan error, 1)
	go func() { served <- s.Serve() }()

	c := newClient(s.Addr())
	defer c.Close()
	acked := make(chan []byte, 1)
	go func() {
		ack, _ := c.Send(context.Background(), []byte(testADT))
		acked <- ack
	}()
	<-started

	shut := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shut <- s.Shutdown(ctx)
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)

	if ack := <-acked; string(ack) != "done" {
		t.Errorf("expected in-flight message to be answered, got %q", ack)
	}
	if err := <-shut; err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
	if err := <-served; !errors.Is(err, ErrServerClosed) {
		t.Errorf("expected ErrServerClosed, got %v", err)
	}
}

func TestServer_ShutdownWaitsForTrackedConn(t *testing.T) {
	s := NewServer(Config{Addr: "127.0.0.1:0"}, HandlerFunc(func(context.Context, []byte) ([]byte, error) {
		return nil, nil
	}), zerolog.Nop(), nil)
	conn, peer := net.Pipe()
	defer peer.Close()
	if !s.track(conn) {
		t.Fatal("expected connection to be tracked")
	}

	shut := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shut <- s.Shutdown(ctx)
	}()
	select {
	case err := <-shut:
		t.Fatalf("Shutdown returned while a connection was registered: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	conn.Close()
	s.untrack(conn)
	select {
	case err := <-shut:
		if err != nil {
			t.Errorf("unexpected shutdown error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return after the connection ended")
	}

	late, latePeer := net.Pipe()
	defer latePeer.Close()
	defer late.Close()
	if s.track(late) {
		t.Error("expected track to refuse connections after Shutdown")
	}
}

func TestServer_ShutdownDeadline(t *testing.T) {
	started := make(chan struct{})
	s := NewServer(Config{Addr: "127.0.0.1:0"}, HandlerFunc(func(ctx context.Context, _ []byte) ([]byte, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}), zerolog.Nop(), nil)
	if err := s.Listen(); err != nil {
		t.Fatal(err)
	}
	served := make(chan error, 1)
	go func() { served <- s.Serve() }()

	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	NewWriter(conn).WriteMessage([]byte(testADT))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	<-served
}

// =========== Client Tests ===========

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestClient_BreakerOpens(t *testing.T) {
	c := NewClient(ClientConfig{
		Addr:             closedAddr(t),
		DialTimeout:      time.Second,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
	}, zerolog.Nop(), nil)
	defer c.Close()

	for i := 0; i < 2; i++ {
		if _, err := c.Send(context.Background(), []byte(testADT)); err == nil {
			t.Fatal("expected dial error")
		}
	}
	if c.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %v", c.State())
	}
	_, err := c.Send(context.Background(), []byte(testADT))
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
}

func TestClient_ContextCancel(t *testing.T) {
	s := startServer(t, Config{}, HandlerFunc(func(ctx context.Context, _ []byte) ([]byte, error) {
		return nil, nil
	}))
	c := newClient(s.Addr())
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Send(ctx, []byte(testADT))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if c.State() != gobreaker.StateClosed {
		t.Errorf("a single timeout must not open the breaker, got %v", c.State())
	}
}
