package nats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gonats "github.com/nats-io/nats.go"

	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/config"
)

// Errors returned by the client. Check with errors.Is().
var (
	ErrDisabled         = errors.New("nats: disabled in configuration")
	ErrNotConnected     = errors.New("nats: not connected")
	ErrConnectionFailed = errors.New("nats: connection failed")
	ErrInvalidSubject   = errors.New("nats: subject cannot be empty")
)

const (
	defaultTimeout      = 5 * time.Second
	defaultDrainTimeout = 10 * time.Second
	defaultPingInterval = 20 * time.Second
)

// ConnectionStatus is the last known state of the connection.
type ConnectionStatus int

// Connection states.
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnected
	StatusReconnecting
	StatusClosed
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusClosed:
		return "closed"
	default:
		return "disconnected"
	}
}

// Logger is the optional logging interface. *slog.Logger satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Client is a NATS connection with status tracking.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	cfg    config.NATSConfig
	logger Logger

	mu         sync.RWMutex
	conn       *gonats.Conn
	status     ConnectionStatus
	reconnects int
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for connection state changes.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.logger = l }
}

func newClient(cfg config.NATSConfig, opts ...Option) *Client {
	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the configured server. The context bounds the initial
// attempt; later reconnects are handled by nats.go.
func Connect(ctx context.Context, cfg config.NATSConfig, opts ...Option) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	c := newClient(cfg, opts...)

	type result struct {
		conn *gonats.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := gonats.Connect(cfg.URL, c.natsOptions()...)
		done <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, r.err)
		}
		c.mu.Lock()
		c.conn = r.conn
		c.status = StatusConnected
		c.mu.Unlock()
		c.info("NATS connected", "url", r.conn.ConnectedUrl())
		return c, nil
	}
}

func (c *Client) natsOptions() []gonats.Option {
	opts := []gonats.Option{
		gonats.MaxReconnects(c.cfg.MaxReconnects),
		gonats.ReconnectWait(time.Duration(c.cfg.ReconnectWait) * time.Second),
		gonats.PingInterval(defaultPingInterval),
		gonats.Timeout(defaultTimeout),
		gonats.DrainTimeout(defaultDrainTimeout),
		gonats.DisconnectErrHandler(c.handleDisconnect),
		gonats.ReconnectHandler(c.handleReconnect),
		gonats.ClosedHandler(c.handleClosed),
	}
	if c.cfg.Token != "" {
		opts = append(opts, gonats.Token(c.cfg.Token))
	}
	if c.cfg.Name != "" {
		opts = append(opts, gonats.Name(c.cfg.Name))
	}
	return opts
}

func (c *Client) setStatus(s ConnectionStatus) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Client) handleDisconnect(_ *gonats.Conn, err error) {
	c.mu.Lock()
	if c.status != StatusClosed {
		c.status = StatusReconnecting
	}
	c.mu.Unlock()
	c.warn("NATS disconnected", "error", err)
}

func (c *Client) handleReconnect(conn *gonats.Conn) {
	c.mu.Lock()
	c.status = StatusConnected
	c.reconnects++
	c.mu.Unlock()
	c.info("NATS reconnected", "url", conn.ConnectedUrl())
}

func (c *Client) handleClosed(_ *gonats.Conn) {
	c.setStatus(StatusClosed)
}

func (c *Client) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

// Status returns the last known connection state.
func (c *Client) Status() ConnectionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Reconnects returns how often the connection was re-established.
func (c *Client) Reconnects() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnects
}

// Publish sends data on subject. It satisfies coreevent.NATSPublisher.
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	if subject == "" {
		return ErrInvalidSubject
	}
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}
	return conn.Publish(subject, data)
}

// HealthCheck flushes the connection to verify the server round trip.
func (c *Client) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}
	if err := conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats health check: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.status = StatusClosed
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	if err := conn.Drain(); err != nil {
		conn.Close()
		return fmt.Errorf("draining nats connection: %w", err)
	}
	return nil
}
