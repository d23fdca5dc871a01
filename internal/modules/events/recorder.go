package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/pubsub"
	"github.com/nfrund/gymhub/internal/realtime"
)

// Recorder turns channel events from the bus into audit rows.
type Recorder struct {
	store  domain.EventLogRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store domain.EventLogRepository, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger.With("module", "events"), now: time.Now}
}

// Start subscribes to every audited topic. Delivery stops when ctx ends.
func (r *Recorder) Start(ctx context.Context, sub pubsub.Subscriber) error {
	if err := pubsub.Subscribe(ctx, sub, realtime.MessageSentEvent, r.messageSent); err != nil {
		return err
	}
	for _, e := range []pubsub.Event[realtime.AnnouncementChange]{
		realtime.AnnouncementPostedEvent,
		realtime.AnnouncementUpdatedEvent,
		realtime.AnnouncementRemovedEvent,
	} {
		err := pubsub.Subscribe(ctx, sub, e, func(ctx context.Context, ch realtime.AnnouncementChange, _ pubsub.Message) error {
			return r.announcementChanged(ctx, e.Name(), ch)
		})
		if err != nil {
			return err
		}
	}
	return pubsub.Subscribe(ctx, sub, realtime.AffiliationChangedEvent, r.affiliationChanged)
}

func (r *Recorder) messageSent(ctx context.Context, m domain.Message, _ pubsub.Message) error {
	return r.record(ctx, &domain.EventLog{
		Event:     realtime.MessageSentEvent.Name(),
		GymID:     m.GymID,
		UserID:    m.SenderID,
		UserModel: m.SenderModel,
		Details: map[string]string{
			"messageId":  m.ID,
			"receiverId": m.ReceiverID,
		},
	})
}

func (r *Recorder) announcementChanged(ctx context.Context, topic string, ch realtime.AnnouncementChange) error {
	return r.record(ctx, &domain.EventLog{
		Event:     topic,
		GymID:     ch.GymID,
		UserID:    ch.ActorID,
		UserModel: domain.RoleGym.Model(),
		Details:   map[string]string{"announcementId": ch.ID},
	})
}

// affiliationChanged writes a row to each gym involved, so a move shows up
// in both the old and the new gym's log.
func (r *Recorder) affiliationChanged(ctx context.Context, ch realtime.AffiliationChange, _ pubsub.Message) error {
	if ch.PreviousGymID == ch.GymID {
		return nil
	}
	details := map[string]string{"source": ch.Source}
	if ch.PreviousGymID != "" {
		if err := r.record(ctx, &domain.EventLog{
			Event:     "gym.affiliation.left",
			GymID:     ch.PreviousGymID,
			UserID:    ch.UserID,
			UserModel: ch.Role.Model(),
			Details:   details,
		}); err != nil {
			return err
		}
	}
	if ch.GymID == "" {
		return nil
	}
	return r.record(ctx, &domain.EventLog{
		Event:     "gym.affiliation.joined",
		GymID:     ch.GymID,
		UserID:    ch.UserID,
		UserModel: ch.Role.Model(),
		Details:   details,
	})
}

func (r *Recorder) record(ctx context.Context, e *domain.EventLog) error {
	if e.GymID == "" {
		return nil
	}
	e.ID = uuid.NewString()
	e.CreatedAt = r.now().UTC()
	if err := r.store.RecordEvent(ctx, e); err != nil {
		r.logger.ErrorContext(ctx, "Failed to record event", "event", e.Event, "gym_id", e.GymID, "error", err)
		return fmt.Errorf("record %s: %w", e.Event, err)
	}
	return nil
}
