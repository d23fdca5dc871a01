package database

import (
	"context"
	"fmt"

	"github.com/nfrund/gymhub/internal/domain"
)

var _ domain.EventLogRepository = (*EventLogStore)(nil)

// EventLogStore persists audit rows.
type EventLogStore struct {
	client Client[eventLogRecord]
}

// NewEventLogStore creates a store on conn.
func NewEventLogStore(conn DBConnection) (*EventLogStore, error) {
	c, err := NewClient[eventLogRecord](conn)
	if err != nil {
		return nil, err
	}
	return &EventLogStore{client: c}, nil
}

// RecordEvent implements domain.EventLogRepository.
func (s *EventLogStore) RecordEvent(ctx context.Context, e *domain.EventLog) error {
	_, err := s.client.Create(ctx, eventLogTable, eventLogRecord{
		UID:       e.ID,
		Event:     e.Event,
		GymID:     e.GymID,
		UserID:    e.UserID,
		UserModel: e.UserModel,
		Details:   e.Details,
		CreatedAt: dateTime(e.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ListEvents implements domain.EventLogRepository.
func (s *EventLogStore) ListEvents(ctx context.Context, gymID string, limit int) ([]*domain.EventLog, error) {
	query := "SELECT * FROM event_log WHERE gym_id = $gym ORDER BY created_at DESC"
	params := map[string]any{"gym": gymID}
	if limit > 0 {
		query += " LIMIT $limit"
		params["limit"] = limit
	}
	rows, err := s.client.Query(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]*domain.EventLog, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
