package services_test

import (
	"chat-room/domain/chat"
	"chat-room/domain/event"
	apperrors "chat-room/errors"
	"chat-room/mocks"
	"chat-room/repositories"
	"chat-room/services"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_PostMessage_Persists_Then_Publishes(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	broadcaster := mocks.NewMockIBroadcaster(ctrl)
	service := services.NewChatService(slog.Default(), repository, broadcaster, 20)

	at := time.Now().UTC()
	stored := repositories.DiskMessage{ID: 42, Content: "hello", Username: "alice", At: at}

	gomock.InOrder(
		repository.EXPECT().StoreMessage("hello", "alice").Return(stored, nil),
		broadcaster.EXPECT().Publish(gomock.Any(), event.MessageCreated{
			ID: 42, Content: "hello", Username: "alice", CreatedAt: at,
		}),
	)

	created, err := service.PostMessage(context.Background(), chat.PostMessageCommand{
		Content:  "hello",
		Username: "alice",
	})
	req.NoError(err)
	req.Equal(chat.Message{ID: 42, Content: "hello", Username: "alice", CreatedAt: at}, created)
}

func Test_PostMessage_Invalid_Never_Persists_Nor_Publishes(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	// No expectations: any repository or broadcaster call fails the test.
	repository := mocks.NewMockIMessageRepository(ctrl)
	broadcaster := mocks.NewMockIBroadcaster(ctrl)
	service := services.NewChatService(slog.Default(), repository, broadcaster, 20)

	commands := []chat.PostMessageCommand{
		{Content: "", Username: "bob"},
		{Content: "hello", Username: ""},
		{Content: strings.Repeat("a", chat.MaxContentLength+1), Username: "bob"},
	}
	for _, cmd := range commands {
		_, err := service.PostMessage(context.Background(), cmd)
		req.Error(err)

		_, ok := apperrors.AsValidationError(err)
		req.True(ok)
	}
}

func Test_PostMessage_Store_Failure_Never_Publishes(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	broadcaster := mocks.NewMockIBroadcaster(ctrl)
	service := services.NewChatService(slog.Default(), repository, broadcaster, 20)

	repository.EXPECT().StoreMessage("hello", "alice").
		Return(repositories.DiskMessage{}, apperrors.ErrSinkFull)

	_, err := service.PostMessage(context.Background(), chat.PostMessageCommand{
		Content:  "hello",
		Username: "alice",
	})
	req.Error(err)
}

func Test_GetPage_Maps_Disk_Messages(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repository := mocks.NewMockIMessageRepository(ctrl)
	broadcaster := mocks.NewMockIBroadcaster(ctrl)
	service := services.NewChatService(slog.Default(), repository, broadcaster, 2)

	at := time.Now().UTC()
	repository.EXPECT().GetPage(3, 2).Return([]repositories.DiskMessage{
		{ID: 6, Content: "newest", Username: "alice", At: at},
		{ID: 5, Content: "older", Username: "bob", At: at.Add(-time.Minute)},
	}, 3, nil)

	page, err := service.GetPage(3)
	req.NoError(err)
	req.Equal(3, page.Page)
	req.Equal(3, page.TotalPages)
	req.Len(page.Messages, 2)
	req.Equal(uint64(6), page.Messages[0].ID)
	req.Equal("older", page.Messages[1].Content)
}
