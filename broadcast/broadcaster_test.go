package broadcast

import (
	"chat-room/domain/chat"
	"chat-room/domain/event"
	apperrors "chat-room/errors"
	"chat-room/mocks"
	"chat-room/sink"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_Publish_Reaches_Every_Subscriber_Exactly_Once(t *testing.T) {
	req := require.New(t)
	broadcaster := NewBroadcaster(slog.Default(), chat.TopicName)

	const subscribers = 10
	sinks := make([]*sink.Connection, subscribers)
	for i := range sinks {
		sinks[i] = sink.NewConnection(4)
		broadcaster.Subscribe(fmt.Sprintf("conn-%d", i), sinks[i])
	}
	req.Equal(subscribers, broadcaster.Count())

	published := event.MessageCreated{ID: 1, Content: "hello", Username: "alice", CreatedAt: time.Now().UTC()}
	broadcaster.Publish(context.Background(), published)

	for i, s := range sinks {
		select {
		case received := <-s.Events:
			req.Equal(published, received, "subscriber %d", i)
		default:
			t.Fatalf("subscriber %d received nothing", i)
		}
		// Exactly once: no second delivery buffered.
		select {
		case <-s.Events:
			t.Fatalf("subscriber %d received a duplicate", i)
		default:
		}
	}
}

func Test_Unsubscribe_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	broadcaster := NewBroadcaster(slog.Default(), chat.TopicName)

	s := sink.NewConnection(1)
	broadcaster.Subscribe("conn-1", s)
	req.Equal(1, broadcaster.Count())

	broadcaster.Unsubscribe("conn-1")
	broadcaster.Unsubscribe("conn-1")
	broadcaster.Unsubscribe("never-subscribed")
	req.Zero(broadcaster.Count())

	broadcaster.Publish(context.Background(), event.MessageCreated{ID: 1})
	select {
	case <-s.Events:
		t.Fatal("unsubscribed connection still received a delivery")
	default:
	}
}

func Test_Failing_Subscriber_Does_Not_Stop_The_Others(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	broadcaster := NewBroadcaster(slog.Default(), chat.TopicName)

	failing := mocks.NewMockEventSink(ctrl)
	failing.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(apperrors.ErrSinkFull)
	healthy := sink.NewConnection(1)

	broadcaster.Subscribe("conn-failing", failing)
	broadcaster.Subscribe("conn-healthy", healthy)

	published := event.MessageCreated{ID: 7, Content: "still here", Username: "bob"}
	broadcaster.Publish(context.Background(), published)

	select {
	case received := <-healthy.Events:
		req.Equal(published, received)
	default:
		t.Fatal("healthy subscriber missed the delivery")
	}
}

func Test_Full_Sink_Drops_Without_Blocking(t *testing.T) {
	req := require.New(t)
	broadcaster := NewBroadcaster(slog.Default(), chat.TopicName)

	saturated := sink.NewConnection(1)
	broadcaster.Subscribe("conn-1", saturated)

	done := make(chan struct{})
	go func() {
		defer close(done)
		broadcaster.Publish(context.Background(), event.MessageCreated{ID: 1})
		broadcaster.Publish(context.Background(), event.MessageCreated{ID: 2})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a saturated subscriber")
	}

	received := <-saturated.Events
	req.Equal(uint64(1), received.(event.MessageCreated).ID)
}
