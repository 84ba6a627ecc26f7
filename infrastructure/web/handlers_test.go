package web

import (
	"chat-room/broadcast"
	"chat-room/domain/chat"
	"chat-room/observability"
	"chat-room/repositories"
	"chat-room/services"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server      *httptest.Server
	service     services.IChatService
	broadcaster *broadcast.Broadcaster
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	req := require.New(t)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	repository, err := repositories.NewMessageRepository(db, slog.Default())
	req.NoError(err)
	t.Cleanup(func() { _ = repository.Close() })

	broadcaster := broadcast.NewBroadcaster(slog.Default(), chat.TopicName)
	service := services.NewChatService(slog.Default(), repository, broadcaster, 4)
	monitor, err := observability.NewMonitor(slog.Default(), time.Minute)
	req.NoError(err)

	handlers := NewHandlers(slog.Default(), service, broadcaster, monitor, 8)
	server := httptest.NewServer(NewRouter(handlers))
	t.Cleanup(server.Close)

	return fixture{server: server, service: service, broadcaster: broadcaster}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func Test_Create_Message_Returns_201_With_Identity(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	resp := postJSON(t, f.server.URL+"/messages", `{"message":{"content":"hello","username":"alice"}}`)
	req.Equal(http.StatusCreated, resp.StatusCode)

	var created struct {
		ID        uint64    `json:"id"`
		Content   string    `json:"content"`
		Username  string    `json:"username"`
		CreatedAt time.Time `json:"createdAt"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&created))
	req.NotZero(created.ID)
	req.Equal("hello", created.Content)
	req.Equal("alice", created.Username)
	req.False(created.CreatedAt.IsZero())
}

func Test_Create_Invalid_Message_Returns_422_With_Error_List(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	bodies := []string{
		`{"message":{"content":"","username":"bob"}}`,
		`{"message":{"content":"hello","username":""}}`,
		`{"message":{"username":"bob"}}`,
		`{}`,
	}
	for _, body := range bodies {
		resp := postJSON(t, f.server.URL+"/messages", body)
		req.Equal(http.StatusUnprocessableEntity, resp.StatusCode, body)

		var failure struct {
			Errors []string `json:"errors"`
		}
		req.NoError(json.NewDecoder(resp.Body).Decode(&failure))
		req.NotEmpty(failure.Errors, body)
	}

	// Nothing was persisted along the way.
	messages, err := f.service.GetMessages()
	req.NoError(err)
	req.Empty(messages)
}

func Test_Create_Malformed_Body_Returns_400(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	resp := postJSON(t, f.server.URL+"/messages", `{"message":`)
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func Test_List_Messages_Oldest_First(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	for i := 1; i <= 3; i++ {
		resp := postJSON(t, f.server.URL+"/messages",
			fmt.Sprintf(`{"message":{"content":"message %d","username":"alice"}}`, i))
		req.Equal(http.StatusCreated, resp.StatusCode)
	}

	resp, err := http.Get(f.server.URL + "/messages")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var messages []struct {
		Content string `json:"content"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&messages))
	req.Len(messages, 3)
	req.Equal("message 1", messages[0].Content)
	req.Equal("message 3", messages[2].Content)
}

func Test_List_Messages_Paginated_Newest_First(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	// Page size is 4 in the fixture.
	for i := 1; i <= 6; i++ {
		resp := postJSON(t, f.server.URL+"/messages",
			fmt.Sprintf(`{"message":{"content":"message %d","username":"alice"}}`, i))
		req.Equal(http.StatusCreated, resp.StatusCode)
	}

	resp, err := http.Get(f.server.URL + "/messages?page=1")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var page struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&page))
	req.Equal(1, page.Page)
	req.Equal(2, page.TotalPages)
	req.Len(page.Messages, 4)
	req.Equal("message 6", page.Messages[0].Content)
	req.Equal("message 3", page.Messages[3].Content)
}

func Test_List_Messages_Rejects_Bad_Page(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	for _, target := range []string{"/messages?page=0", "/messages?page=abc"} {
		resp, err := http.Get(f.server.URL + target)
		req.NoError(err)
		_ = resp.Body.Close()
		req.Equal(http.StatusBadRequest, resp.StatusCode, target)
	}
}

func Test_Status_Reports_Counters(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	resp := postJSON(t, f.server.URL+"/messages", `{"message":{"content":"hello","username":"alice"}}`)
	req.Equal(http.StatusCreated, resp.StatusCode)

	statusResp, err := http.Get(f.server.URL + "/status")
	req.NoError(err)
	defer statusResp.Body.Close()
	req.Equal(http.StatusOK, statusResp.StatusCode)

	var status struct {
		Subscribers int `json:"subscribers"`
		Messages    int `json:"messages"`
	}
	req.NoError(json.NewDecoder(statusResp.Body).Decode(&status))
	req.Zero(status.Subscribers)
	req.Equal(1, status.Messages)
}
