package websocket

import (
	"time"

	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/pubsub"
	"github.com/nfrund/gymhub/internal/topicmgr"
)

// ClientLifecycle is published when a websocket connection opens or closes.
type ClientLifecycle struct {
	ConnID string      `json:"connId"`
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
	// Room is the room the connection was in when it closed.
	Room string    `json:"room,omitempty"`
	At   time.Time `json:"at"`
}

var (
	// ClientReadyEvent fires once a connection is registered and can receive frames.
	ClientReadyEvent = pubsub.NewEvent[ClientLifecycle](topicmgr.DefineFramework(topicmgr.Config{
		Name:        "ws.client.ready",
		Description: "A websocket client connected and is ready to join a gym room",
		Example:     `{"connId":"5f0c...","userId":"member-1","role":"member","at":"2025-01-01T10:00:00Z"}`,
	}))

	// ClientDisconnectedEvent fires after a connection was removed from the registry.
	ClientDisconnectedEvent = pubsub.NewEvent[ClientLifecycle](topicmgr.DefineFramework(topicmgr.Config{
		Name:        "ws.client.disconnected",
		Description: "A websocket client disconnected",
		Example:     `{"connId":"5f0c...","userId":"member-1","role":"member","room":"gym-1","at":"2025-01-01T10:05:00Z"}`,
	}))
)
