package database

import (
	"context"
	"fmt"

	"github.com/nfrund/gymhub/internal/domain"
)

var _ domain.MessageRepository = (*MessageStore)(nil)

// MessageStore persists direct messages in SurrealDB.
type MessageStore struct {
	client Client[messageRecord]
}

// NewMessageStore creates a store on conn.
func NewMessageStore(conn DBConnection) (*MessageStore, error) {
	c, err := NewClient[messageRecord](conn)
	if err != nil {
		return nil, err
	}
	return &MessageStore{client: c}, nil
}

// CreateMessage implements domain.MessageRepository.
func (s *MessageStore) CreateMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if msg == nil || msg.ID == "" {
		return nil, NewDBError(ErrInvalidInput, "message and message id are required")
	}
	rec, err := s.client.Create(ctx, messageTable, newMessageRecord(msg))
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return rec.toDomain(), nil
}

const findMessagesQuery = `
	SELECT * FROM message
	WHERE gym_id = $gym
		AND ((sender_id = $a AND receiver_id = $b) OR (sender_id = $b AND receiver_id = $a))
	ORDER BY timestamp ASC`

// FindMessages implements domain.MessageRepository.
func (s *MessageStore) FindMessages(ctx context.Context, gymID, a, b string) ([]*domain.Message, error) {
	rows, err := s.client.Query(ctx, findMessagesQuery, map[string]any{"gym": gymID, "a": a, "b": b})
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	out := make([]*domain.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
