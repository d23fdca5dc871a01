package memstore

import (
	"context"
	"sync"

	"github.com/nfrund/gymhub/internal/domain"
)

var _ domain.EventLogRepository = (*EventLogStore)(nil)

// EventLogStore is an append-only audit log.
type EventLogStore struct {
	mu     sync.RWMutex
	events []domain.EventLog
}

// NewEventLogStore returns an empty log.
func NewEventLogStore() *EventLogStore {
	return &EventLogStore{}
}

// RecordEvent implements domain.EventLogRepository.
func (s *EventLogStore) RecordEvent(_ context.Context, e *domain.EventLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *e)
	return nil
}

// ListEvents implements domain.EventLogRepository.
func (s *EventLogStore) ListEvents(_ context.Context, gymID string, limit int) ([]*domain.EventLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.EventLog
	for i := len(s.events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if e := s.events[i]; e.GymID == gymID {
			out = append(out, &e)
		}
	}
	return out, nil
}
