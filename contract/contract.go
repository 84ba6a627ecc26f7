//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-room/domain/event"
	"context"
	"reflect"
)

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound half of a connection: the broadcaster pushes
// deliveries through it without knowing anything about the transport.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IBroadcaster is the single-topic fan-out hub. Subscriptions are owned
// exclusively by the implementation; unsubscribing an unknown connection
// is a no-op.
type IBroadcaster interface {
	Subscribe(connectionID string, sink EventSink)
	Unsubscribe(connectionID string)
	Publish(ctx context.Context, e event.DomainEvent)
	Count() int
}
