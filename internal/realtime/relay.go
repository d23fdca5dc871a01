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

// SendRequest is a direct message as submitted by a sender.
type SendRequest struct {
	SenderID     string
	SenderRole   domain.Role
	ReceiverID   string
	ReceiverRole domain.Role
	GymID        string
	Body         string
}

// Relay validates, persists and broadcasts direct messages.
type Relay struct {
	messages domain.MessageRepository
	resolver *Resolver
	emitter  Emitter

	events  pubsub.Publisher
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	senders keyedMutex
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithRelayEvents publishes MessageSentEvent after every relayed message.
func WithRelayEvents(p pubsub.Publisher) RelayOption {
	return func(r *Relay) { r.events = p }
}

// WithRelayMetrics records relay counters.
func WithRelayMetrics(m *Metrics) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

// WithRelayLogger sets the logger.
func WithRelayLogger(l *slog.Logger) RelayOption {
	return func(r *Relay) { r.logger = l }
}

// WithRelayClock overrides the timestamp source.
func WithRelayClock(now func() time.Time) RelayOption {
	return func(r *Relay) { r.now = now }
}

// NewRelay creates a relay.
func NewRelay(messages domain.MessageRepository, resolver *Resolver, emitter Emitter, opts ...RelayOption) *Relay {
	r := &Relay{
		messages: messages,
		resolver: resolver,
		emitter:  emitter,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Send validates req, persists the message and broadcasts it to the gym
// room. Nothing is persisted or broadcast when validation fails. Sends from
// the same sender are persisted and broadcast in call order.
func (r *Relay) Send(ctx context.Context, req SendRequest) (*domain.Message, error) {
	unlock := r.senders.Lock(req.SenderID)
	defer unlock()

	if err := r.validate(ctx, req); err != nil {
		r.metrics.rejectedWith(err)
		return nil, err
	}

	msg, err := r.messages.CreateMessage(ctx, &domain.Message{
		ID:            r.newID(),
		SenderID:      req.SenderID,
		SenderModel:   req.SenderRole.Model(),
		ReceiverID:    req.ReceiverID,
		ReceiverModel: req.ReceiverRole.Model(),
		GymID:         req.GymID,
		Body:          req.Body,
		Timestamp:     r.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	// The message is durable at this point; a failed emit is logged and
	// recoverable through history.
	if err := r.emitter.Emit(ctx, msg.GymID, EventMessage, msg); err != nil {
		r.logger.Error("Failed to broadcast message", "gym_id", msg.GymID, "message_id", msg.ID, "error", err)
	}
	r.metrics.messageRelayed()

	if r.events != nil {
		if err := pubsub.Publish(ctx, r.events, MessageSentEvent, msg.SenderID, *msg); err != nil {
			r.logger.Warn("Failed to publish message event", "message_id", msg.ID, "error", err)
		}
	}
	return msg, nil
}

func (r *Relay) validate(ctx context.Context, req SendRequest) error {
	if strings.TrimSpace(req.Body) == "" {
		return domain.ErrEmptyMessage
	}
	if req.SenderID == "" || req.ReceiverID == "" || req.GymID == "" {
		return fmt.Errorf("%w: sender, receiver and gym are required", domain.ErrInvalidParticipants)
	}
	if req.SenderID == req.ReceiverID {
		return fmt.Errorf("%w: cannot message yourself", domain.ErrInvalidParticipants)
	}
	if !domain.CanMessage(req.SenderRole, req.ReceiverRole) {
		return fmt.Errorf("%w: %s cannot message %s", domain.ErrInvalidParticipants, req.SenderRole.Model(), req.ReceiverRole.Model())
	}
	if err := r.requireGym(ctx, req.SenderID, req.SenderRole, req.GymID); err != nil {
		return err
	}
	return r.requireGym(ctx, req.ReceiverID, req.ReceiverRole, req.GymID)
}

// requireGym checks that userID belongs to gymID. Missing affiliations and
// mismatches are both participant errors here; lookup failures pass through.
func (r *Relay) requireGym(ctx context.Context, userID string, role domain.Role, gymID string) error {
	room, err := r.resolver.Resolve(ctx, userID, role)
	switch {
	case err == nil && room == gymID:
		return nil
	case err == nil:
		return fmt.Errorf("%w: %s belongs to another gym", domain.ErrInvalidParticipants, userID)
	case domain.KindOf(err) == domain.KindInternal:
		return err
	default:
		return fmt.Errorf("%w: %s is not in gym %s", domain.ErrInvalidParticipants, userID, gymID)
	}
}

// History returns the messages between caller and counterpartID inside
// gymID, oldest first. The caller must belong to gymID.
func (r *Relay) History(ctx context.Context, caller domain.Identity, gymID, counterpartID string) ([]*domain.Message, error) {
	if counterpartID == "" {
		return nil, fmt.Errorf("%w: counterpart is required", domain.ErrBadRequest)
	}
	if err := r.resolver.RequireMember(ctx, caller, gymID); err != nil {
		return nil, err
	}
	msgs, err := r.messages.FindMessages(ctx, gymID, caller.UserID, counterpartID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}
