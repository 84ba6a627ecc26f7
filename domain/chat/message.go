// Package chat contains core concepts of the chat room.
// This file defines the Message entity and its rules.
// Messages are immutable once created and validated by the domain.
package chat

import (
	"time"
)

// TopicName addresses the single broadcast channel every client shares.
// It exists for the lifetime of the process.
const TopicName = "chat_room"

const (
	MaxContentLength  = 1000
	MaxUsernameLength = 50
)

// Message represents an immutable chat message.
// The ID is assigned by the store at creation and never reused.
type Message struct {
	ID        uint64    `json:"id"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}
