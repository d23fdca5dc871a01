package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/nfrund/gymhub/internal/domain"
)

// ChangeAction is the kind of change a live query reports.
type ChangeAction string

const (
	ChangeCreate ChangeAction = "CREATE"
	ChangeUpdate ChangeAction = "UPDATE"
	ChangeDelete ChangeAction = "DELETE"
)

// AffiliationChangeHandler receives affiliation rows changed by any writer,
// including other instances and operators editing the database directly.
type AffiliationChangeHandler func(ctx context.Context, action ChangeAction, a domain.Affiliation)

// WatchAffiliations runs a live query on the affiliation table until ctx is
// canceled.
func WatchAffiliations(ctx context.Context, conn DBConnection, handler AffiliationChangeHandler) error {
	if handler == nil {
		return fmt.Errorf("affiliation change handler cannot be nil")
	}

	var (
		liveID string
		notes  <-chan connection.Notification
		db     *surrealdb.DB
	)
	err := conn.WithConnection(ctx, func(d *surrealdb.DB) error {
		results, err := surrealdb.Query[any](ctx, d, "LIVE SELECT * FROM affiliation", nil)
		if err != nil {
			return err
		}
		if results == nil || len(*results) == 0 || (*results)[0].Status != "OK" {
			return fmt.Errorf("live query was not accepted")
		}
		if liveID, err = liveQueryID((*results)[0].Result); err != nil {
			return err
		}
		if notes, err = d.LiveNotifications(liveID); err != nil {
			return fmt.Errorf("live notifications: %w", err)
		}
		db = d
		return nil
	})
	if err != nil {
		return NewDBError(err, "watch affiliations")
	}

	slog.InfoContext(ctx, "Watching affiliation changes", "live_query_id", liveID)
	go func() {
		defer stopLiveQuery(db, liveID)
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-notes:
				if !ok {
					return
				}
				action, known := changeAction(n)
				if !known {
					continue
				}
				a, err := decodeAffiliation(n.Result)
				if err != nil {
					slog.Warn("Skipping undecodable affiliation change", "error", err)
					continue
				}
				handler(ctx, action, a)
			}
		}
	}()
	return nil
}

func changeAction(n connection.Notification) (ChangeAction, bool) {
	switch n.Action {
	case connection.CreateAction:
		return ChangeCreate, true
	case connection.UpdateAction:
		return ChangeUpdate, true
	case connection.DeleteAction:
		return ChangeDelete, true
	default:
		return "", false
	}
}

// liveQueryID extracts the id LIVE SELECT returns, which the driver may
// decode as a string, a UUID or a map holding one.
func liveQueryID(v any) (string, error) {
	switch id := v.(type) {
	case string:
		return id, nil
	case models.UUID:
		return id.String(), nil
	case map[string]any:
		return liveQueryID(id["id"])
	default:
		return "", fmt.Errorf("unexpected live query id %T", v)
	}
}

func decodeAffiliation(v any) (domain.Affiliation, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return domain.Affiliation{}, err
	}
	var rec affiliationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Affiliation{}, err
	}
	return rec.toDomain(), nil
}

func stopLiveQuery(db *surrealdb.DB, liveID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.CloseLiveNotifications(liveID); err != nil {
		slog.Warn("Failed to close live notifications", "live_query_id", liveID, "error", err)
	}
	if _, err := surrealdb.Query[any](ctx, db, "KILL $id", map[string]any{"id": liveID}); err != nil {
		slog.Warn("Failed to kill live query", "live_query_id", liveID, "error", err)
	}
}
