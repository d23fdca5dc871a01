package websocket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/middleware"
	"github.com/nfrund/gymhub/internal/pubsub"
	"github.com/nfrund/gymhub/internal/realtime"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second
	// Interval between keep-alive pings.
	pingPeriod = 54 * time.Second
	// Largest inbound frame accepted.
	readLimit = 64 << 10
)

// BridgeDependencies holds what the bridge needs to serve connections.
type BridgeDependencies struct {
	Registry   *realtime.Registry
	Dispatcher *realtime.Dispatcher
	// Publisher receives client lifecycle events. Optional.
	Publisher pubsub.Publisher
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithSendBuffer sets the per-connection outbound queue size.
func WithSendBuffer(n int) Option {
	return func(b *Bridge) { b.sendBuffer = n }
}

// WithOriginPatterns sets the origins allowed to open a connection besides
// the server's own host.
func WithOriginPatterns(patterns ...string) Option {
	return func(b *Bridge) { b.origins = patterns }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// Bridge connects websocket clients to the connection registry. Each
// connection runs a read loop feeding its dispatcher session and a write
// pump draining its outbound queue.
type Bridge struct {
	registry   *realtime.Registry
	dispatcher *realtime.Dispatcher
	publisher  pubsub.Publisher

	sendBuffer int
	origins    []string
	logger     *slog.Logger
	now        func() time.Time
}

// NewBridge creates a bridge.
func NewBridge(deps BridgeDependencies, opts ...Option) *Bridge {
	b := &Bridge{
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		publisher:  deps.Publisher,
		sendBuffer: 64,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handler upgrades authenticated requests and serves the connection until
// either side closes it.
func (b *Bridge) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := middleware.IdentityFrom(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}

		ws, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			OriginPatterns: b.origins,
		})
		if err != nil {
			b.logger.Warn("Failed to upgrade connection to WebSocket", "user_id", id.UserID, "error", err)
			return nil
		}
		ws.SetReadLimit(readLimit)

		conn := realtime.NewConn(uuid.NewString(), id, b.sendBuffer)
		logger := middleware.FromContext(c.Request().Context()).With("conn_id", conn.ID, "user_id", id.UserID)
		ctx, cancel := context.WithCancel(middleware.WithLogger(context.WithoutCancel(c.Request().Context()), logger))
		defer cancel()

		if err := b.registry.Add(conn); err != nil {
			logger.Error("Failed to register connection", "error", err)
			ws.Close(websocket.StatusInternalError, "registration failed")
			return nil
		}
		b.publishLifecycle(ctx, ClientReadyEvent, conn, "")
		logger.Info("WebSocket client connected", "role", id.Role)

		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			b.writePump(ctx, ws, conn, logger)
		}()

		b.readLoop(ctx, ws, conn, logger)

		room, _ := b.registry.RoomOf(conn.ID)
		var inRoom time.Duration
		if joinedAt, ok := b.registry.JoinedAt(conn.ID); ok {
			inRoom = b.now().Sub(joinedAt)
		}
		b.registry.Remove(conn.ID)
		cancel()
		<-writerDone
		ws.Close(websocket.StatusNormalClosure, "")
		b.publishLifecycle(context.WithoutCancel(ctx), ClientDisconnectedEvent, conn, room)
		logger.Info("WebSocket client disconnected", "room", room, "in_room", inRoom.Round(time.Millisecond))
		return nil
	}
}

// readLoop hands every text frame to the session and queues its ack.
func (b *Bridge) readLoop(ctx context.Context, ws *websocket.Conn, conn *realtime.Conn, logger *slog.Logger) {
	session := b.dispatcher.Session(conn)
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			logReadError(logger, err)
			return
		}

		var res realtime.Result
		if typ != websocket.MessageText {
			res = realtime.Result{Kind: domain.KindBadRequest, Error: "binary frames are not supported"}
		} else {
			res = session.Handle(ctx, data)
		}

		ack, err := realtime.EncodeFrame(realtime.EventAck, res)
		if err != nil {
			logger.Error("Failed to encode ack", "event", res.Event, "error", err)
			continue
		}
		if !b.registry.SendTo(conn.ID, ack) {
			logger.Warn("Dropped ack, send queue full", "event", res.Event)
		}
	}
}

// writePump writes queued frames until the queue is closed or ctx ends, and
// pings the peer periodically.
func (b *Bridge) writePump(ctx context.Context, ws *websocket.Conn, conn *realtime.Conn, logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-conn.Outbound():
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := ws.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				logger.Warn("WebSocket write failed", "error", err)
				ws.Close(websocket.StatusInternalError, "write failed")
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := ws.Ping(pctx)
			cancel()
			if err != nil {
				logger.Info("WebSocket ping failed, closing", "error", err)
				ws.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}

func (b *Bridge) publishLifecycle(ctx context.Context, e pubsub.Event[ClientLifecycle], conn *realtime.Conn, room string) {
	if b.publisher == nil {
		return
	}
	ev := ClientLifecycle{
		ConnID: conn.ID,
		UserID: conn.Identity.UserID,
		Role:   conn.Identity.Role,
		Room:   room,
		At:     b.now().UTC(),
	}
	if err := pubsub.Publish(ctx, b.publisher, e, conn.Identity.UserID, ev); err != nil {
		b.logger.Error("Failed to publish client lifecycle event", "topic", e.Name(), "conn_id", conn.ID, "error", err)
	}
}

func logReadError(logger *slog.Logger, err error) {
	switch status := websocket.CloseStatus(err); {
	case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
		logger.Debug("WebSocket closed by client", "status", status)
	case errors.Is(err, io.EOF) || errors.Is(err, context.Canceled):
		logger.Debug("WebSocket read ended", "error", err)
	default:
		logger.Warn("WebSocket read error", "error", err)
	}
}
