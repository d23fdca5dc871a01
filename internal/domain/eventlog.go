package domain

import (
	"context"
	"time"
)

// EventLog is an audit row written for every successful channel mutation.
type EventLog struct {
	ID        string            `json:"id"`
	Event     string            `json:"event"`
	GymID     string            `json:"gymId"`
	UserID    string            `json:"userId"`
	UserModel string            `json:"userModel"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// EventLogRepository stores audit rows.
type EventLogRepository interface {
	RecordEvent(ctx context.Context, e *EventLog) error
	// ListEvents returns up to limit rows for gymID, newest first.
	ListEvents(ctx context.Context, gymID string, limit int) ([]*EventLog, error)
}
