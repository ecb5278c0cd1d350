// Package client receives the value stream from the monitoring server.
//
// TCPClient implements the start/stop controller used by the shared client
// state. Each Start launches one worker goroutine that connects, sends the
// handshake, decodes value lines and reconnects with backoff until Stop.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// handshakeTimeout bounds the write of the handshake line.
	handshakeTimeout = 5 * time.Second

	// maxLineSize is the longest server line accepted.
	maxLineSize = 1024 * 1024
)

// Config holds configuration for creating a TCPClient.
type Config struct {
	Host   string
	Port   int
	Sink   Sink
	Logger *slog.Logger

	DialTimeout   time.Duration
	Backoff       BackoffConfig
	BufferSize    int     // pipeline capacity in lines
	DropThreshold float64 // pipeline degradation threshold
	Seed          int64   // jitter seed
}

// Stats is a snapshot of the client's counters, cumulative since creation.
type Stats struct {
	Connected    bool
	Running      bool
	Connections  int64
	Reconnects   int64
	LinesRead    int64
	LinesDropped int64
	Malformed    int64
	Samples      int64
}

// TCPClient connects to the monitoring server and feeds samples to a Sink.
type TCPClient struct {
	cfg    Config
	addr   string
	logger *slog.Logger

	// Lifecycle (protected by mu)
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	decoder       atomic.Pointer[LineDecoder]
	prevSamples   atomic.Int64
	prevMalformed atomic.Int64

	conn   net.Conn
	connMu sync.Mutex

	connected    atomic.Bool
	connections  atomic.Int64
	reconnects   atomic.Int64
	linesRead    atomic.Int64
	linesDropped atomic.Int64
}

// NewTCPClient creates a client for host:port. It does not connect until Start.
func NewTCPClient(cfg Config) *TCPClient {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	return &TCPClient{
		cfg:    cfg,
		addr:   addr,
		logger: logger.With("addr", addr),
	}
}

// Addr returns the server address.
func (c *TCPClient) Addr() string {
	return c.addr
}

// Start launches the worker for the given channel count. It returns as soon
// as the worker is running; connecting happens in the background.
func (c *TCPClient) Start(channels int) error {
	if channels < 1 {
		return fmt.Errorf("channels must be at least 1 (got %d)", channels)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}

	if prev := c.decoder.Load(); prev != nil {
		c.prevSamples.Add(prev.Samples())
		c.prevMalformed.Add(prev.Malformed())
	}
	decoder := NewLineDecoder(channels, c.cfg.Sink, c.logger)
	c.decoder.Store(decoder)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	c.logger.Info("client_starting", "channels", channels)
	go c.run(ctx, channels, decoder, c.done)
	return nil
}

// Stop cancels the worker, closes the connection and waits for the worker
// to exit.
func (c *TCPClient) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := c.cancel, c.done
	c.running = false
	c.mu.Unlock()

	cancel()
	c.closeConn()
	<-done

	c.logger.Info("client_stopped")
	return nil
}

// Running reports whether a worker is active.
func (c *TCPClient) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Stats returns a snapshot of the counters.
func (c *TCPClient) Stats() Stats {
	s := Stats{
		Connected:    c.connected.Load(),
		Running:      c.Running(),
		Connections:  c.connections.Load(),
		Reconnects:   c.reconnects.Load(),
		LinesRead:    c.linesRead.Load(),
		LinesDropped: c.linesDropped.Load(),
		Samples:      c.prevSamples.Load(),
		Malformed:    c.prevMalformed.Load(),
	}
	if d := c.decoder.Load(); d != nil {
		s.Samples += d.Samples()
		s.Malformed += d.Malformed()
	}
	return s
}

// run is the worker loop: connect, read until the connection ends, back off,
// repeat until ctx is cancelled.
func (c *TCPClient) run(ctx context.Context, channels int, decoder *LineDecoder, done chan struct{}) {
	defer close(done)

	backoff := NewBackoff(c.cfg.Seed, c.cfg.Backoff)

	for {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		before := decoder.Samples()
		err := c.session(ctx, channels, decoder)
		if ctx.Err() != nil {
			return
		}

		if ShouldReset(time.Since(start), decoder.Samples()-before) {
			backoff.Reset()
		}
		delay := backoff.Next()
		c.reconnects.Add(1)

		c.logger.Warn("server_disconnected",
			"error", err,
			"attempt", backoff.Attempts(),
			"retry_in", delay.String(),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session runs one connection. It returns when the connection ends or ctx
// is cancelled.
func (c *TCPClient) session(ctx context.Context, channels int, decoder *LineDecoder) error {
	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	c.setConn(conn)
	defer c.closeConn()

	// Unblock the scanner when the worker is cancelled.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.connections.Add(1)
	c.connected.Store(true)
	defer c.connected.Store(false)
	c.logger.Info("client_connected", "channels", channels)

	if err := writeHandshake(conn, channels); err != nil {
		return err
	}

	pipeline := NewPipeline(c.cfg.BufferSize, c.cfg.DropThreshold)
	parserDone := make(chan struct{})
	go func() {
		defer close(parserDone)
		pipeline.RunParser(decoder)
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		c.linesRead.Add(1)
		if !pipeline.FeedLine(scanner.Text()) {
			c.linesDropped.Add(1)
		}
	}

	pipeline.CloseChannel()
	<-parserDone

	if pipeline.IsDegraded() {
		c.logger.Warn("pipeline_degraded", "drop_rate", pipeline.DropRate())
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return io.EOF
}

// writeHandshake announces the channel count: "CHANNELS <n>\n".
func writeHandshake(conn net.Conn, channels int) error {
	if err := conn.SetWriteDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		return fmt.Errorf("set handshake deadline: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "CHANNELS %d\n", channels); err != nil {
		return fmt.Errorf("write handshake: %w", err)
	}
	if err := conn.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("clear handshake deadline: %w", err)
	}
	return nil
}

func (c *TCPClient) setConn(conn net.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func (c *TCPClient) closeConn() {
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()
}
