package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/pubsub"
)

// Broadcaster manages gym announcements and fans every change out to the
// gym's room.
type Broadcaster struct {
	store    domain.AnnouncementRepository
	resolver *Resolver
	emitter  Emitter

	events  pubsub.Publisher
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	// serializes mutations of one announcement id
	records keyedMutex
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithBroadcasterEvents publishes announcement lifecycle events on p.
func WithBroadcasterEvents(p pubsub.Publisher) BroadcasterOption {
	return func(b *Broadcaster) { b.events = p }
}

// WithBroadcasterMetrics records announcement counters.
func WithBroadcasterMetrics(m *Metrics) BroadcasterOption {
	return func(b *Broadcaster) { b.metrics = m }
}

// WithBroadcasterClock overrides the timestamp source.
func WithBroadcasterClock(now func() time.Time) BroadcasterOption {
	return func(b *Broadcaster) { b.now = now }
}

// NewBroadcaster creates a broadcaster.
func NewBroadcaster(store domain.AnnouncementRepository, resolver *Resolver, emitter Emitter, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		store:    store,
		resolver: resolver,
		emitter:  emitter,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func requireOwner(caller domain.Identity, gymID string) error {
	if !caller.IsGym(gymID) {
		return fmt.Errorf("%w: only gym %s can manage its announcements", domain.ErrForbidden, gymID)
	}
	return nil
}

func requireBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return domain.ErrEmptyMessage
	}
	return nil
}

// Post creates an announcement for gymID and broadcasts it.
func (b *Broadcaster) Post(ctx context.Context, caller domain.Identity, gymID, body string) (*domain.Announcement, error) {
	if err := requireOwner(caller, gymID); err != nil {
		return nil, b.reject(err)
	}
	if err := requireBody(body); err != nil {
		return nil, b.reject(err)
	}

	now := b.now()
	a, err := b.store.CreateAnnouncement(ctx, &domain.Announcement{
		ID:          b.newID(),
		GymID:       gymID,
		SenderID:    caller.UserID,
		SenderModel: caller.Role.Model(),
		SenderName:  caller.Name,
		Body:        body,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("persist announcement: %w", err)
	}

	b.fanOut(ctx, gymID, EventAnnouncement, a)
	b.publish(ctx, AnnouncementPostedEvent, AnnouncementChange{Action: ActionPosted, GymID: gymID, ActorID: caller.UserID, Announcement: a, ID: a.ID})
	b.metrics.announcement(ActionPosted)
	return a, nil
}

// Update replaces the body of an announcement owned by gymID and broadcasts
// the updated record.
func (b *Broadcaster) Update(ctx context.Context, caller domain.Identity, announcementID, gymID, body string) (*domain.Announcement, error) {
	if err := requireOwner(caller, gymID); err != nil {
		return nil, b.reject(err)
	}
	if err := requireBody(body); err != nil {
		return nil, b.reject(err)
	}

	unlock := b.records.Lock(announcementID)
	defer unlock()

	if err := b.checkOwned(ctx, announcementID, gymID); err != nil {
		return nil, b.reject(err)
	}
	a, err := b.store.UpdateAnnouncement(ctx, announcementID, body, b.now())
	if err != nil {
		return nil, b.reject(fmt.Errorf("update announcement: %w", err))
	}

	b.fanOut(ctx, gymID, EventAnnouncementUpdate, a)
	b.publish(ctx, AnnouncementUpdatedEvent, AnnouncementChange{Action: ActionUpdated, GymID: gymID, ActorID: caller.UserID, Announcement: a, ID: a.ID})
	b.metrics.announcement(ActionUpdated)
	return a, nil
}

// Remove deletes an announcement owned by gymID and broadcasts its id.
// Removing an id twice fails with ErrNotFound the second time.
func (b *Broadcaster) Remove(ctx context.Context, caller domain.Identity, announcementID, gymID string) error {
	if err := requireOwner(caller, gymID); err != nil {
		return b.reject(err)
	}

	unlock := b.records.Lock(announcementID)
	defer unlock()

	if err := b.checkOwned(ctx, announcementID, gymID); err != nil {
		return b.reject(err)
	}
	if err := b.store.DeleteAnnouncement(ctx, announcementID); err != nil {
		return b.reject(fmt.Errorf("delete announcement: %w", err))
	}

	b.fanOut(ctx, gymID, EventAnnouncementDelete, announcementID)
	b.publish(ctx, AnnouncementRemovedEvent, AnnouncementChange{Action: ActionRemoved, GymID: gymID, ActorID: caller.UserID, ID: announcementID})
	b.metrics.announcement(ActionRemoved)
	return nil
}

// List returns the announcements of gymID, newest first. Any participant of
// the gym may read them.
func (b *Broadcaster) List(ctx context.Context, caller domain.Identity, gymID string) ([]*domain.Announcement, error) {
	if err := b.resolver.RequireMember(ctx, caller, gymID); err != nil {
		return nil, err
	}
	list, err := b.store.ListAnnouncements(ctx, gymID)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return list, nil
}

func (b *Broadcaster) checkOwned(ctx context.Context, announcementID, gymID string) error {
	if announcementID == "" {
		return fmt.Errorf("%w: announcement id is required", domain.ErrNotFound)
	}
	a, err := b.store.GetAnnouncement(ctx, announcementID)
	if err != nil {
		return fmt.Errorf("load announcement %s: %w", announcementID, err)
	}
	if a.GymID != gymID {
		return fmt.Errorf("%w: announcement %s belongs to another gym", domain.ErrForbidden, announcementID)
	}
	return nil
}

func (b *Broadcaster) reject(err error) error {
	b.metrics.rejectedWith(err)
	return err
}

func (b *Broadcaster) fanOut(ctx context.Context, gymID, event string, payload any) {
	if err := b.emitter.Emit(ctx, gymID, event, payload); err != nil {
		b.logger.Error("Failed to broadcast announcement change", "gym_id", gymID, "event", event, "error", err)
	}
}

func (b *Broadcaster) publish(ctx context.Context, e pubsub.Event[AnnouncementChange], change AnnouncementChange) {
	if b.events == nil {
		return
	}
	if err := pubsub.Publish(ctx, b.events, e, change.ActorID, change); err != nil {
		b.logger.Warn("Failed to publish announcement event", "topic", e.Name(), "error", err)
	}
}
