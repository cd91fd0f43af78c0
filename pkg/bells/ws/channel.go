// Package ws owns the WebSocket subscription to the ledger's per-account
// transfer stream. It delivers raw notification envelopes in receive order
// and reconnects with exponential backoff on unexpected closure.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/interledger-go/plugin-bells/internal/metrics"
)

// ErrChannelClosed is returned by Send after the channel has been closed.
var ErrChannelClosed = errors.New("notification channel is closed")

// Channel is one logical subscription to an account's transfer stream.
type Channel interface {
	// Connect dials the stream and starts delivering messages. It returns an
	// error if the initial dial fails; later disconnects are handled by the
	// channel itself.
	Connect(ctx context.Context) error

	// Messages returns the ordered stream of raw notification payloads. The
	// channel is unbuffered: a slow consumer delays the next receive. It is
	// closed when the Channel is closed for good.
	Messages() <-chan json.RawMessage

	// Send writes a JSON acknowledgment reply on the same connection.
	Send(v any) error

	// Close tears the connection down. Idempotent.
	Close() error
}

// Config holds WebsocketChannel settings.
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	// MaxReconnectInterval caps the reconnect backoff. Zero applies the
	// backoff library default.
	MaxReconnectInterval time.Duration
}

// WebsocketChannel is the gorilla/websocket implementation of Channel.
type WebsocketChannel struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	closed  bool

	msgs chan json.RawMessage
	done chan struct{}
}

var _ Channel = (*WebsocketChannel)(nil)

// NewWebsocketChannel creates a channel for the given stream URL.
func NewWebsocketChannel(cfg Config, logger *zap.Logger) *WebsocketChannel {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebsocketChannel{
		cfg:    cfg,
		logger: logger,
		msgs:   make(chan json.RawMessage),
		done:   make(chan struct{}),
	}
}

func (c *WebsocketChannel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	if c.conn != nil {
		return nil
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	childCtx, cancel := context.WithCancel(ctx)
	c.conn = conn
	c.cancel = cancel

	go c.readLoop(childCtx)
	return nil
}

func (c *WebsocketChannel) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Notification channel connected", zap.String("url", c.cfg.URL))
	return conn, nil
}

func (c *WebsocketChannel) Messages() <-chan json.RawMessage {
	return c.msgs
}

func (c *WebsocketChannel) Send(v any) error {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()
	if closed || conn == nil {
		return ErrChannelClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (c *WebsocketChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
		<-c.done
	} else {
		close(c.msgs)
	}
	return nil
}

// readLoop reads messages for the lifetime of the subscription, redialing on
// unexpected closure. It owns the msgs channel and closes it on exit.
func (c *WebsocketChannel) readLoop(ctx context.Context) {
	defer close(c.done)
	defer close(c.msgs)

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		_, payload, err := conn.ReadMessage()
		if err == nil {
			select {
			case c.msgs <- json.RawMessage(payload):
			case <-ctx.Done():
				return
			}
			continue
		}

		if ctx.Err() != nil || c.isClosed() {
			return
		}

		c.logger.Warn("Notification channel read failed, reconnecting", zap.Error(err))
		if !c.reconnect(ctx) {
			return
		}
	}
}

func (c *WebsocketChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// reconnect redials with exponential backoff until it succeeds or the
// channel is closed. Returns false when the channel is done for good.
func (c *WebsocketChannel) reconnect(ctx context.Context) bool {
	policy := backoff.NewExponentialBackOff()
	if c.cfg.MaxReconnectInterval > 0 {
		policy.MaxInterval = c.cfg.MaxReconnectInterval
	}
	policy.MaxElapsedTime = 0

	conn, err := backoff.RetryWithData(func() (*websocket.Conn, error) {
		if c.isClosed() {
			return nil, backoff.Permanent(ErrChannelClosed)
		}
		conn, err := c.dial(ctx)
		if err != nil {
			metrics.ChannelReconnects.WithLabelValues("retry").Inc()
			c.logger.Debug("Reconnect attempt failed", zap.Error(err))
			return nil, err
		}
		return conn, nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		metrics.ChannelReconnects.WithLabelValues("abandoned").Inc()
		return false
	}

	metrics.ChannelReconnects.WithLabelValues("connected").Inc()
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return true
}
