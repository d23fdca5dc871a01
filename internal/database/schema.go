package database

import (
	"context"
	"fmt"
	"log/slog"
)

// schema holds idempotent table and index definitions.
var schema = []string{
	"DEFINE TABLE IF NOT EXISTS message SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS message_uid ON message FIELDS uid UNIQUE",
	"DEFINE INDEX IF NOT EXISTS message_conversation ON message FIELDS gym_id, sender_id, receiver_id",
	"DEFINE TABLE IF NOT EXISTS announcement SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS announcement_uid ON announcement FIELDS uid UNIQUE",
	"DEFINE INDEX IF NOT EXISTS announcement_gym ON announcement FIELDS gym_id",
	"DEFINE TABLE IF NOT EXISTS affiliation SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS affiliation_gym ON affiliation FIELDS gym_id",
	"DEFINE TABLE IF NOT EXISTS event_log SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS event_log_gym ON event_log FIELDS gym_id",
}

// Migrate applies the schema. It is safe to run on every start.
func Migrate(ctx context.Context, conn DBConnection) error {
	c, err := NewClient[any](conn)
	if err != nil {
		return err
	}
	for _, stmt := range schema {
		if err := c.Execute(ctx, stmt, nil); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	slog.InfoContext(ctx, "Database schema applied", "statements", len(schema))
	return nil
}
