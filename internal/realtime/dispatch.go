package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/nfrund/gymhub/internal/domain"
)

// ErrUnknownEvent is returned for frames with an event name the server does not accept.
var ErrUnknownEvent = fmt.Errorf("%w: unknown event", domain.ErrBadRequest)

// SendMessagePayload is the data of a sendMessage frame.
type SendMessagePayload struct {
	SenderID      string `json:"senderId" validate:"required"`
	SenderModel   string `json:"senderModel" validate:"required"`
	ReceiverID    string `json:"receiverId" validate:"required"`
	ReceiverModel string `json:"receiverModel" validate:"required"`
	GymID         string `json:"gymId" validate:"required"`
	Message       string `json:"message"`
}

// Result is the outcome of one inbound frame. It is sent back to the
// originating connection as an ack frame.
type Result struct {
	Event     string           `json:"event"`
	OK        bool             `json:"ok"`
	Kind      domain.ErrorKind `json:"kind,omitempty"`
	Error     string           `json:"error,omitempty"`
	Room      string           `json:"room,omitempty"`
	MessageID string           `json:"messageId,omitempty"`
}

func failure(event string, err error) Result {
	return Result{Event: event, Kind: domain.KindOf(err), Error: err.Error()}
}

// Dispatcher holds what every connection handler needs.
type Dispatcher struct {
	registry *Registry
	resolver *Resolver
	relay    *Relay
	validate *validator.Validate
	logger   *slog.Logger
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(registry *Registry, resolver *Resolver, relay *Relay) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		resolver: resolver,
		relay:    relay,
		validate: validator.New(),
		logger:   slog.Default(),
	}
}

// Session returns the handler for one connection.
func (d *Dispatcher) Session(conn *Conn) *Session {
	return &Session{d: d, conn: conn}
}

// Session handles the inbound frames of a single connection. Frames of one
// session are expected to be handled sequentially.
type Session struct {
	d    *Dispatcher
	conn *Conn
}

// Handle decodes one raw frame and performs it. Failures are reported in the
// Result and never end the session.
func (s *Session) Handle(ctx context.Context, raw []byte) Result {
	frame, err := DecodeFrame(raw)
	if err != nil {
		return failure("", fmt.Errorf("%w: %v", domain.ErrBadRequest, err))
	}

	var res Result
	switch frame.Event {
	case EventJoinGym:
		res = s.joinGym(ctx, frame.Data)
	case EventSendMessage:
		res = s.sendMessage(ctx, frame.Data)
	default:
		res = failure(frame.Event, fmt.Errorf("%w %q", ErrUnknownEvent, frame.Event))
	}

	if !res.OK {
		s.d.logger.Info("Rejected client event",
			"conn_id", s.conn.ID, "user_id", s.conn.Identity.UserID, "event", res.Event, "kind", res.Kind, "error", res.Error)
	}
	return res
}

func (s *Session) joinGym(ctx context.Context, data json.RawMessage) Result {
	var requested string
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &requested); err != nil {
			return failure(EventJoinGym, fmt.Errorf("%w: joinGym expects a gym id string", domain.ErrBadRequest))
		}
	}

	room, err := s.d.resolver.ResolveIdentity(ctx, s.conn.Identity)
	if err != nil {
		return failure(EventJoinGym, err)
	}
	if requested != "" && requested != room {
		return failure(EventJoinGym, fmt.Errorf("%w: not a participant of gym %s", domain.ErrForbidden, requested))
	}

	if err := s.d.registry.Join(s.conn.ID, room); err != nil {
		return failure(EventJoinGym, err)
	}
	return Result{Event: EventJoinGym, OK: true, Room: room}
}

func (s *Session) sendMessage(ctx context.Context, data json.RawMessage) Result {
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return failure(EventSendMessage, fmt.Errorf("%w: %v", domain.ErrBadRequest, err))
	}
	if err := s.d.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return failure(EventSendMessage, fmt.Errorf("%w: %s is required", domain.ErrBadRequest, verrs[0].Field()))
		}
		return failure(EventSendMessage, fmt.Errorf("%w: %v", domain.ErrBadRequest, err))
	}

	senderRole, err := domain.ParseRole(p.SenderModel)
	if err != nil {
		return failure(EventSendMessage, err)
	}
	receiverRole, err := domain.ParseRole(p.ReceiverModel)
	if err != nil {
		return failure(EventSendMessage, err)
	}

	id := s.conn.Identity
	if p.SenderID != id.UserID || senderRole != id.Role {
		return failure(EventSendMessage, fmt.Errorf("%w: sender does not match the connection identity", domain.ErrForbidden))
	}

	msg, err := s.d.relay.Send(ctx, SendRequest{
		SenderID:     p.SenderID,
		SenderRole:   senderRole,
		ReceiverID:   p.ReceiverID,
		ReceiverRole: receiverRole,
		GymID:        p.GymID,
		Body:         p.Message,
	})
	if err != nil {
		return failure(EventSendMessage, err)
	}
	return Result{Event: EventSendMessage, OK: true, Room: msg.GymID, MessageID: msg.ID}
}
