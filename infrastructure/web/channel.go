package web

import (
	"chat-room/contract"
	"chat-room/domain/chat"
	"chat-room/domain/event"
	apperrors "chat-room/errors"
	"chat-room/services"
	"chat-room/sink"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the client.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong. Must be greater than pingPeriod.
	pongWait = 60 * time.Second

	// Ping interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size.
	maxFrameSize = 4096
)

// Subscription lifecycle. There is no transition out of stateUnsubscribed.
const (
	stateSubscribing int32 = iota
	stateActive
	stateUnsubscribed
)

// Channel is the per-connection subscription state machine.
// It plays two roles composed on one connection: outbound delivery target
// for the broadcaster (through its sink) and inbound publish source for its
// own client.
type Channel struct {
	id          string
	log         *slog.Logger
	conn        *websocket.Conn
	sink        *sink.Connection
	broadcaster contract.IBroadcaster
	service     services.IChatService

	// control carries protocol frames (subscription confirmations) to the
	// write pump, keeping all writes on a single goroutine.
	control chan outboundFrame
	done    chan struct{}
	once    sync.Once
	state   atomic.Int32
}

func newChannel(log *slog.Logger, conn *websocket.Conn,
	broadcaster contract.IBroadcaster, service services.IChatService, bufferSize int) *Channel {
	c := &Channel{
		id:          uuid.NewString(),
		log:         log,
		conn:        conn,
		sink:        sink.NewConnection(bufferSize),
		broadcaster: broadcaster,
		service:     service,
		control:     make(chan outboundFrame, 4),
		done:        make(chan struct{}),
	}
	c.state.Store(stateSubscribing)
	return c
}

// teardown moves the channel to its terminal state and always unregisters
// from the broadcaster, even after an abnormal close. Safe to call twice.
func (c *Channel) teardown() {
	c.once.Do(func() {
		c.state.Store(stateUnsubscribed)
		c.broadcaster.Unsubscribe(c.id)
		close(c.done)
		_ = c.conn.Close()
		c.log.Debug("Channel closed", "connection_id", c.id)
	})
}

// readPump owns the inbound side: subscribe, publish and unsubscribe
// commands. It exits on the first read error, which covers both graceful
// and abrupt disconnections.
func (c *Channel) readPump() {
	defer c.teardown()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("Connection lost", "connection_id", c.id, "error", err)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Debug("Dropping unparsable frame", "connection_id", c.id, "error", err)
			continue
		}

		switch frame.Command {
		case commandSubscribe:
			c.handleSubscribe(frame)
		case commandPublish:
			c.handlePublish(frame)
		case commandUnsubscribe:
			return
		default:
			c.log.Debug("Dropping unknown command", "connection_id", c.id, "command", frame.Command)
		}
	}
}

// handleSubscribe registers the connection with the broadcaster and
// confirms. The subscribe request identifies only the channel name.
func (c *Channel) handleSubscribe(frame inboundFrame) {
	if frame.Topic != chat.TopicName {
		c.log.Debug("Subscribe request for unknown topic", "connection_id", c.id, "topic", frame.Topic)
		return
	}
	if !c.state.CompareAndSwap(stateSubscribing, stateActive) {
		c.log.Debug("Duplicate subscribe request", "connection_id", c.id)
		return
	}

	c.broadcaster.Subscribe(c.id, c.sink)

	select {
	case c.control <- outboundFrame{Type: typeConfirmSubscription, Topic: chat.TopicName}:
	case <-c.done:
	}
}

// handlePublish runs the inbound publish path. The structural check only
// requires both fields to be present; business validation belongs to the
// store path. Either failure is logged and dropped, nothing is surfaced to
// the sender over this path and the connection stays up.
func (c *Channel) handlePublish(frame inboundFrame) {
	if c.state.Load() != stateActive {
		c.log.Debug("Publish before subscription, dropping", "connection_id", c.id)
		return
	}
	if frame.Message == nil || frame.Message.Content == nil || frame.Message.Username == nil {
		c.log.Debug("Dropping malformed publish payload", "connection_id", c.id)
		return
	}

	_, err := c.service.PostMessage(context.Background(), chat.PostMessageCommand{
		Content:  *frame.Message.Content,
		Username: *frame.Message.Username,
	})
	if err != nil {
		if _, ok := apperrors.AsValidationError(err); ok {
			c.log.Warn("Inbound message rejected", "connection_id", c.id, "error", err)
			return
		}
		c.log.Error("Inbound message persistence failed", "connection_id", c.id, "error", err)
	}
}

// writePump owns the outbound side: broadcaster deliveries, protocol
// frames and keepalive pings.
func (c *Channel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.teardown()
	}()

	for {
		select {
		case e := <-c.sink.Events:
			created, ok := e.(event.MessageCreated)
			if !ok {
				continue
			}
			if err := c.write(outboundFrame{Type: typeMessage, Message: toPayload(created)}); err != nil {
				return
			}
		case frame := <-c.control:
			if err := c.write(frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Channel) write(frame outboundFrame) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(frame)
}

func toPayload(e event.MessageCreated) *messagePayload {
	return &messagePayload{
		ID:        e.ID,
		Content:   e.Content,
		Username:  e.Username,
		CreatedAt: e.CreatedAt,
	}
}
