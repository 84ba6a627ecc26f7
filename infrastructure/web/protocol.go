package web

import "time"

// Socket protocol. Clients subscribe to the one topic by name, publish
// through the open channel, and receive created messages as they happen.
const (
	commandSubscribe   = "subscribe"
	commandPublish     = "publish"
	commandUnsubscribe = "unsubscribe"

	typeConfirmSubscription = "confirm_subscription"
	typeMessage             = "message"
)

type inboundFrame struct {
	Command string          `json:"command"`
	Topic   string          `json:"topic,omitempty"`
	Message *inboundMessage `json:"message,omitempty"`
}

// inboundMessage uses pointers so a missing field can be told apart from an
// empty one. Presence is the channel's structural check; emptiness and
// length are business validation.
type inboundMessage struct {
	Content  *string `json:"content"`
	Username *string `json:"username"`
}

type outboundFrame struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Message *messagePayload `json:"message,omitempty"`
}

type messagePayload struct {
	ID        uint64    `json:"id"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}
