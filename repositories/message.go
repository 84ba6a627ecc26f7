//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	messageKeyPrefix   = "msg:"
	messageSequenceKey = "seq:message"

	// sequenceBandwidth controls how many IDs a lease reserves at once.
	// Crash recovery may skip the unused remainder of a lease, which keeps
	// IDs monotonic and never reused, exactly what the store promises.
	sequenceBandwidth = 64
)

type IMessageRepository interface {
	StoreMessage(content, username string) (DiskMessage, error)
	GetMessages() ([]DiskMessage, error)
	GetPage(page, pageSize int) ([]DiskMessage, int, error)
	Count() (int, error)
}

// DiskMessage is the persisted shape of a chat message.
type DiskMessage struct {
	ID       uint64    `json:"id"`
	Content  string    `json:"content"`
	Username string    `json:"username"`
	At       time.Time `json:"at"`
}

type MessageRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSequenceKey), sequenceBandwidth)
	if err != nil {
		return MessageRepository{}, fmt.Errorf("message sequence unavailable: %w", err)
	}
	return MessageRepository{db: db, seq: seq, log: log}, nil
}

// Close releases the unused part of the ID lease back to the database.
func (m MessageRepository) Close() error {
	return m.seq.Release()
}

// StoreMessage persists a message in BadgerDB and assigns its identity.
// The key is formatted as "msg:{id_padded}" with 20-digit zero padding so
// that Badger's lexicographic key order is exactly insertion order. IDs come
// from a Badger sequence: monotonic, unique, never reused.
func (m MessageRepository) StoreMessage(content, username string) (DiskMessage, error) {
	next, err := m.seq.Next()
	if err != nil {
		return DiskMessage{}, fmt.Errorf("message ID assignment failed: %w", err)
	}

	message := DiskMessage{
		// The sequence starts at zero; published IDs start at one.
		ID:       next + 1,
		Content:  content,
		Username: username,
		At:       time.Now().UTC(),
	}

	bytes, err := json.Marshal(message)
	if err != nil {
		return DiskMessage{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(messageKey(message.ID)), bytes)
	})
	if err != nil {
		return DiskMessage{}, err
	}
	return message, nil
}

// GetMessages retrieves every message, oldest first, using a prefix scan.
// Thanks to the padded ID in the key, no sorting step is needed.
func (m MessageRepository) GetMessages() ([]DiskMessage, error) {
	var messages []DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messageKeyPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var message DiskMessage
				if err := json.Unmarshal(value, &message); err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

// GetPage retrieves one page of messages, newest first, plus the total page
// count. Pages are 1-based; a page past the end yields an empty slice, not
// an error. The newest-first order is deliberately the opposite of
// GetMessages: the two listings are separate contracts.
func (m MessageRepository) GetPage(page, pageSize int) ([]DiskMessage, int, error) {
	if page < 1 || pageSize < 1 {
		return nil, 0, fmt.Errorf("page and pageSize must be positive, got page=%d pageSize=%d", page, pageSize)
	}

	total, err := m.Count()
	if err != nil {
		return nil, 0, err
	}
	totalPages := (total + pageSize - 1) / pageSize
	if page > totalPages {
		m.log.Debug(fmt.Sprintf("Page %d requested but only %d available", page, totalPages))
	}

	var messages []DiskMessage
	err = m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messageKeyPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the highest possible key, then walk backwards.
		seekKey := append([]byte(messageKeyPrefix), 0xFF)
		it.Seek(seekKey)

		skip := (page - 1) * pageSize
		for ; it.ValidForPrefix(prefix) && skip > 0; it.Next() {
			skip--
		}

		for ; it.ValidForPrefix(prefix) && len(messages) < pageSize; it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var message DiskMessage
				if err := json.Unmarshal(value, &message); err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return messages, totalPages, nil
}

// Count reports how many messages are persisted. Keys only, no value fetch.
func (m MessageRepository) Count() (int, error) {
	var total int
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messageKeyPrefix)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			total++
		}
		return nil
	})
	return total, err
}

func messageKey(id uint64) string {
	return fmt.Sprintf("%s%020d", messageKeyPrefix, id)
}
