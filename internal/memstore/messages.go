package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/nfrund/gymhub/internal/domain"
)

var _ domain.MessageRepository = (*MessageStore)(nil)

// MessageStore keeps messages in insertion order.
type MessageStore struct {
	mu   sync.RWMutex
	msgs []domain.Message
}

// NewMessageStore returns an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// CreateMessage implements domain.MessageRepository.
func (s *MessageStore) CreateMessage(_ context.Context, msg *domain.Message) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, *msg)
	out := *msg
	return &out, nil
}

// FindMessages implements domain.MessageRepository.
func (s *MessageStore) FindMessages(_ context.Context, gymID, a, b string) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Message
	for i := range s.msgs {
		m := s.msgs[i]
		if m.GymID != gymID {
			continue
		}
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, &m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Len returns how many messages are stored.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}
