package realtime

import (
	"context"
	"log/slog"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/pubsub"
	"github.com/nfrund/gymhub/internal/topicmgr"
)

// AffiliationChange reports that a user's gym affiliation changed. GymID is
// the current gym and is empty when the user no longer belongs to one.
type AffiliationChange struct {
	UserID        string      `json:"userId"`
	Role          domain.Role `json:"role"`
	GymID         string      `json:"gymId,omitempty"`
	PreviousGymID string      `json:"previousGymId,omitempty"`
	Source        string      `json:"source"`
}

// Affiliation change sources.
const (
	SourceLeave     = "leave"
	SourceDirectory = "directory"
	SourceDatabase  = "database"
)

// AffiliationChangedEvent is published whenever an affiliation is added,
// moved or removed.
var AffiliationChangedEvent = pubsub.NewEvent[AffiliationChange](topicmgr.DefineFramework(topicmgr.Config{
	Name:        "gym.affiliation.changed",
	Description: "A trainer or member joined, moved between or left gyms",
	Example:     `{"userId":"member-1","role":"member","previousGymId":"gym-1","source":"leave"}`,
}))

// ServeEvictions removes connections from rooms their user no longer
// belongs to, for every AffiliationChangedEvent seen on sub.
func ServeEvictions(ctx context.Context, sub pubsub.Subscriber, registry *Registry, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	return pubsub.Subscribe(ctx, sub, AffiliationChangedEvent, func(_ context.Context, ch AffiliationChange, _ pubsub.Message) error {
		if ch.Role == domain.RoleGym || ch.UserID == "" {
			return nil
		}
		if n := registry.EvictUserExcept(ch.UserID, ch.GymID); n > 0 {
			logger.Info("Evicted connections after affiliation change",
				"user_id", ch.UserID, "gym_id", ch.GymID, "previous_gym_id", ch.PreviousGymID, "source", ch.Source, "connections", n)
		}
		return nil
	})
}
