package web

import (
	"chat-room/domain/chat"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const frameWait = 2 * time.Second

func dialSocket(t *testing.T, f fixture) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func subscribeSocket(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	req := require.New(t)

	req.NoError(conn.WriteJSON(inboundFrame{Command: commandSubscribe, Topic: chat.TopicName}))
	frame := readFrame(t, conn)
	req.Equal(typeConfirmSubscription, frame.Type)
	req.Equal(chat.TopicName, frame.Topic)
}

func readFrame(t *testing.T, conn *websocket.Conn) outboundFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(frameWait))
	var frame outboundFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func expectSilence(t *testing.T, conn *websocket.Conn, d time.Duration) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(d))
	var frame outboundFrame
	err := conn.ReadJSON(&frame)
	require.Error(t, err, "expected no frame, got %+v", frame)
}

func publishFrame(content, username string) inboundFrame {
	return inboundFrame{
		Command: commandPublish,
		Message: &inboundMessage{Content: &content, Username: &username},
	}
}

func Test_Subscribe_Handshake_Confirms_The_Topic(t *testing.T) {
	f := newFixture(t)
	conn := dialSocket(t, f)
	subscribeSocket(t, conn)
	require.Equal(t, 1, f.broadcaster.Count())
}

func Test_Inbound_Publish_Fans_Out_To_Every_Subscriber(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	sender := dialSocket(t, f)
	subscribeSocket(t, sender)
	watcher := dialSocket(t, f)
	subscribeSocket(t, watcher)

	req.NoError(sender.WriteJSON(publishFrame("hello", "alice")))

	for _, conn := range []*websocket.Conn{sender, watcher} {
		frame := readFrame(t, conn)
		req.Equal(typeMessage, frame.Type)
		req.NotNil(frame.Message)
		req.Equal("hello", frame.Message.Content)
		req.Equal("alice", frame.Message.Username)
		req.NotZero(frame.Message.ID)
		req.False(frame.Message.CreatedAt.IsZero())
	}

	// The inbound path persisted the message too.
	messages, err := f.service.GetMessages()
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("hello", messages[0].Content)
}

func Test_Malformed_Inbound_Publish_Is_Dropped_Silently(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	sender := dialSocket(t, f)
	subscribeSocket(t, sender)

	content := "half a message"
	req.NoError(sender.WriteJSON(inboundFrame{
		Command: commandPublish,
		Message: &inboundMessage{Content: &content},
	}))
	req.NoError(sender.WriteJSON(inboundFrame{Command: commandPublish}))
	expectSilence(t, sender, 300*time.Millisecond)

	// The connection survived: a valid publish still goes through.
	req.NoError(sender.WriteJSON(publishFrame("still alive", "alice")))
	frame := readFrame(t, sender)
	req.Equal(typeMessage, frame.Type)
	req.Equal("still alive", frame.Message.Content)

	messages, err := f.service.GetMessages()
	req.NoError(err)
	req.Len(messages, 1)
}

func Test_Invalid_Inbound_Publish_Is_Logged_Not_Broadcast(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	sender := dialSocket(t, f)
	subscribeSocket(t, sender)

	// Present but empty fields pass the structural check and fail business
	// validation: dropped without closing the connection.
	req.NoError(sender.WriteJSON(publishFrame("", "bob")))
	expectSilence(t, sender, 300*time.Millisecond)

	messages, err := f.service.GetMessages()
	req.NoError(err)
	req.Empty(messages)
}

func Test_Publish_Before_Subscribe_Is_Dropped(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	conn := dialSocket(t, f)
	req.NoError(conn.WriteJSON(publishFrame("too early", "alice")))
	expectSilence(t, conn, 300*time.Millisecond)

	messages, err := f.service.GetMessages()
	req.NoError(err)
	req.Empty(messages)
}

func Test_Unsubscribe_Command_Removes_The_Subscription(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	conn := dialSocket(t, f)
	subscribeSocket(t, conn)
	req.Equal(1, f.broadcaster.Count())

	req.NoError(conn.WriteJSON(inboundFrame{Command: commandUnsubscribe}))
	req.Eventually(func() bool {
		return f.broadcaster.Count() == 0
	}, frameWait, 10*time.Millisecond)
}

func Test_Abrupt_Close_Always_Unsubscribes(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	conn := dialSocket(t, f)
	subscribeSocket(t, conn)
	req.Equal(1, f.broadcaster.Count())

	// No close handshake, just drop the socket.
	req.NoError(conn.Close())
	req.Eventually(func() bool {
		return f.broadcaster.Count() == 0
	}, frameWait, 10*time.Millisecond)
}

func Test_Subscribe_To_Unknown_Topic_Is_Ignored(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	conn := dialSocket(t, f)
	req.NoError(conn.WriteJSON(inboundFrame{Command: commandSubscribe, Topic: "somewhere_else"}))
	expectSilence(t, conn, 300*time.Millisecond)
	req.Zero(f.broadcaster.Count())
}
