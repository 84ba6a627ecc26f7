package event

import (
	"chat-room/domain/chat"
	"time"
)

// DomainEvent is anything the broadcaster can deliver to a subscription.
type DomainEvent interface {
	Topic() string
}

// MessageCreated is emitted once a message has been validated and persisted.
// Its payload is exactly what subscribers receive.
type MessageCreated struct {
	ID        uint64
	Content   string
	Username  string
	CreatedAt time.Time
}

func (m MessageCreated) Topic() string {
	return chat.TopicName
}
