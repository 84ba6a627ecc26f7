package sink

import (
	"chat-room/domain/event"
	apperrors "chat-room/errors"
	"context"
)

// Connection buffers deliveries for a single live subscription.
// The transport side of the connection drains Events at its own pace.
type Connection struct {
	Events chan event.DomainEvent
}

func NewConnection(bufferSize int) *Connection {
	return &Connection{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the broadcaster's fan-out.
// It never blocks the publisher: a full buffer means the delivery is lost
// for this connection only, which is the accepted best-effort semantics.
func (s *Connection) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return apperrors.ErrSinkFull
	}
}
