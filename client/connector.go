// Package client owns the client side of a chat subscription: exactly one
// logical connection, explicit connect/disconnect/send, and automatic
// recovery at a fixed interval after an unexpected disconnect.
package client

import (
	"chat-room/domain/chat"
	apperrors "chat-room/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultReconnectInterval is the fixed delay between reconnect
	// attempts. No backoff, no retry limit: retries continue until
	// Disconnect is called.
	DefaultReconnectInterval = 3 * time.Second

	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// Config tunes the connector's recovery behaviour.
type Config struct {
	AutoReconnect     bool
	ReconnectInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		AutoReconnect:     true,
		ReconnectInterval: DefaultReconnectInterval,
	}
}

// State is a snapshot of the connector, suitable for a UI status indicator.
type State struct {
	IsConnected  bool
	IsConnecting bool
	LastError    string
}

// Connector maintains the single live connection to the chat server.
// The OnMessage handler fires for every pushed message; de-duplication by
// ID is the caller's job, because the HTTP create response and the push can
// both deliver the same message.
type Connector struct {
	mu   sync.Mutex
	log  *slog.Logger
	url  string
	cfg  Config
	dial *websocket.Dialer

	conn           *websocket.Conn
	isConnected    bool
	isConnecting   bool
	lastError      string
	reconnectTimer *time.Timer

	// generation is bumped by every Disconnect. A reconnect attempt that
	// started before the bump must not commit its connection: stopping the
	// timer alone cannot cover an attempt whose dial is already in flight.
	generation uint64

	onMessage func(chat.Message)
}

func NewConnector(log *slog.Logger, socketURL string, cfg Config, onMessage func(chat.Message)) *Connector {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}
	return &Connector{
		log:       log,
		url:       socketURL,
		cfg:       cfg,
		dial:      &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		onMessage: onMessage,
	}
}

// State returns the current connector state.
func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		IsConnected:  c.isConnected,
		IsConnecting: c.isConnecting,
		LastError:    c.lastError,
	}
}

// Connect opens the transport and subscribes to the topic. A no-op when
// already connected or connecting, which prevents duplicate connection
// attempts. A failed attempt records LastError and does NOT retry: the only
// automatic retry path is the disconnect handler.
func (c *Connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.isConnected || c.isConnecting {
		c.mu.Unlock()
		return nil
	}
	c.isConnecting = true
	generation := c.generation
	c.mu.Unlock()

	conn, err := c.subscribe(ctx)
	if err != nil {
		c.mu.Lock()
		c.isConnecting = false
		c.lastError = err.Error()
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.generation != generation {
		// Disconnect was called while the handshake was in flight.
		c.isConnecting = false
		c.mu.Unlock()
		_ = conn.Close()
		c.log.Debug("Discarding connection established during shutdown")
		return nil
	}
	c.conn = conn
	c.isConnected = true
	c.isConnecting = false
	c.lastError = ""
	c.mu.Unlock()

	c.log.Info("Connected", "url", c.url, "topic", chat.TopicName)
	go c.readLoop(conn)
	return nil
}

// subscribe dials, requests the topic and waits for the confirmation.
func (c *Connector) subscribe(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dial.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}

	frame := outboundFrame{Command: commandSubscribe, Topic: chat.TopicName}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(frame); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("subscribe request: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	for {
		var reply inboundFrame
		if err := conn.ReadJSON(&reply); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("subscribe acknowledgment: %w", err)
		}
		if reply.Type == typeConfirmSubscription {
			break
		}
	}
	_ = conn.SetReadDeadline(time.Time{})
	return conn, nil
}

// Disconnect cancels any pending reconnect before tearing down the
// transport, so a scheduled retry can never race a deliberate shutdown.
// Idempotent.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	c.generation++
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.isConnected = false
	c.isConnecting = false
	c.mu.Unlock()

	if conn == nil {
		return
	}
	// Best effort: unsubscribe and close politely, then drop the socket.
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteJSON(outboundFrame{Command: commandUnsubscribe})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	c.log.Info("Disconnected")
}

// SendMessage forwards the pair to the active subscription for inbound
// publishing. Fire-and-forget: no acknowledgment is awaited. Emptiness
// checking is the caller's form-submit boundary, not enforced here; only
// connectivity is.
func (c *Connector) SendMessage(content, username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected || c.conn == nil {
		return apperrors.ErrNotConnected
	}
	frame := outboundFrame{
		Command: commandPublish,
		Message: &wireMessage{Content: &content, Username: &username},
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(frame)
}

// readLoop delivers pushed messages until the transport fails, then hands
// over to the disconnect handler.
func (c *Connector) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Debug("Dropping unparsable frame", "error", err)
			continue
		}
		if frame.Type != typeMessage || frame.Message == nil {
			continue
		}
		if c.onMessage != nil {
			c.onMessage(chat.Message{
				ID:        frame.Message.ID,
				Content:   frame.Message.Content,
				Username:  frame.Message.Username,
				CreatedAt: frame.Message.CreatedAt,
			})
		}
	}
}

// handleDisconnect records the loss and, when auto-reconnect is on,
// schedules exactly one Connect attempt after the fixed interval. This is
// the only automatic retry path.
func (c *Connector) handleDisconnect(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		// A deliberate Disconnect already detached this transport.
		return
	}
	c.conn = nil
	c.isConnected = false
	c.lastError = cause.Error()
	c.log.Warn("Connection lost", "error", cause)

	if c.cfg.AutoReconnect {
		c.scheduleReconnect()
	}
}

// scheduleReconnect must be called with the mutex held.
func (c *Connector) scheduleReconnect() {
	if c.reconnectTimer != nil {
		return
	}
	generation := c.generation
	c.log.Info("Reconnecting", "in", c.cfg.ReconnectInterval)
	c.reconnectTimer = time.AfterFunc(c.cfg.ReconnectInterval, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		stale := c.generation != generation
		c.mu.Unlock()
		if stale {
			return
		}

		if err := c.Connect(context.Background()); err != nil {
			// Same fixed interval again; retries continue until
			// Disconnect is called.
			c.mu.Lock()
			if c.cfg.AutoReconnect && c.generation == generation {
				c.scheduleReconnect()
			}
			c.mu.Unlock()
		}
	})
}
