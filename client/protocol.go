package client

import "time"

// Wire protocol, mirroring the server's subscription channel.
const (
	commandSubscribe   = "subscribe"
	commandPublish     = "publish"
	commandUnsubscribe = "unsubscribe"

	typeConfirmSubscription = "confirm_subscription"
	typeMessage             = "message"
)

// outboundFrame is what the connector writes: subscribe, publish and
// unsubscribe commands. Content and username travel as pointers so the
// server's structural check sees both fields present.
type outboundFrame struct {
	Command string       `json:"command"`
	Topic   string       `json:"topic,omitempty"`
	Message *wireMessage `json:"message,omitempty"`
}

type wireMessage struct {
	Content  *string `json:"content"`
	Username *string `json:"username"`
}

// inboundFrame is what the server pushes: the subscription confirmation and
// created messages.
type inboundFrame struct {
	Type    string         `json:"type"`
	Topic   string         `json:"topic,omitempty"`
	Message *pushedMessage `json:"message,omitempty"`
}

type pushedMessage struct {
	ID        uint64    `json:"id"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}
