//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"chat-room/contract"
	"chat-room/domain/chat"
	"chat-room/domain/event"
	"chat-room/repositories"
	"context"
	"log/slog"

	"github.com/samber/lo"
)

type IChatService interface {
	PostMessage(ctx context.Context, cmd chat.PostMessageCommand) (chat.Message, error)
	GetMessages() ([]chat.Message, error)
	GetPage(page int) (MessagePage, error)
	CountMessages() (int, error)
}

// MessagePage is one newest-first slice of the history.
type MessagePage struct {
	Messages   []chat.Message
	Page       int
	TotalPages int
}

// ChatService owns the single validate -> persist -> publish path.
// Both the HTTP endpoint and the subscription channel's inbound publish go
// through here, so a message failing validation can never reach the
// broadcaster or the disk.
type ChatService struct {
	log         *slog.Logger
	repository  repositories.IMessageRepository
	broadcaster contract.IBroadcaster
	pageSize    int
}

func NewChatService(log *slog.Logger, repository repositories.IMessageRepository,
	broadcaster contract.IBroadcaster, pageSize int) *ChatService {
	return &ChatService{
		log:         log,
		repository:  repository,
		broadcaster: broadcaster,
		pageSize:    pageSize,
	}
}

// PostMessage validates the command, persists the message, then hands it to
// the broadcaster. Persistence assigns ID and CreatedAt; the broadcast
// payload is exactly the persisted record.
func (s *ChatService) PostMessage(ctx context.Context, cmd chat.PostMessageCommand) (chat.Message, error) {
	if err := chat.ValidateMessage(cmd); err != nil {
		return chat.Message{}, err
	}

	stored, err := s.repository.StoreMessage(cmd.Content, cmd.Username)
	if err != nil {
		return chat.Message{}, err
	}

	s.broadcaster.Publish(ctx, event.MessageCreated{
		ID:        stored.ID,
		Content:   stored.Content,
		Username:  stored.Username,
		CreatedAt: stored.At,
	})
	return toMessage(stored), nil
}

// GetMessages returns the whole history, oldest first.
func (s *ChatService) GetMessages() ([]chat.Message, error) {
	messages, err := s.repository.GetMessages()
	if err != nil {
		return nil, err
	}
	return fromDiskMessages(messages), nil
}

// GetPage returns one newest-first page of the history.
func (s *ChatService) GetPage(page int) (MessagePage, error) {
	messages, totalPages, err := s.repository.GetPage(page, s.pageSize)
	if err != nil {
		return MessagePage{}, err
	}
	return MessagePage{
		Messages:   fromDiskMessages(messages),
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

func (s *ChatService) CountMessages() (int, error) {
	return s.repository.Count()
}

func fromDiskMessages(messages []repositories.DiskMessage) []chat.Message {
	return lo.Map(messages, func(item repositories.DiskMessage, _ int) chat.Message {
		return toMessage(item)
	})
}

func toMessage(item repositories.DiskMessage) chat.Message {
	return chat.Message{
		ID:        item.ID,
		Content:   item.Content,
		Username:  item.Username,
		CreatedAt: item.At,
	}
}
