package client

import (
	"chat-room/domain/chat"
	"sync"
)

// Timeline holds the messages a client displays, de-duplicated by ID.
// The same message can legitimately arrive twice: once in the HTTP create
// response and once over the push channel.
type Timeline struct {
	mu       sync.Mutex
	seen     map[uint64]struct{}
	messages []chat.Message
}

func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[uint64]struct{})}
}

// Append adds the message unless its ID was already displayed.
// Reports whether the message was new.
func (t *Timeline) Append(m chat.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[m.ID]; ok {
		return false
	}
	t.seen[m.ID] = struct{}{}
	t.messages = append(t.messages, m)
	return true
}

// Messages returns a copy of the displayed list, in arrival order.
func (t *Timeline) Messages() []chat.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]chat.Message, len(t.messages))
	copy(out, t.messages)
	return out
}
