package realtime

import (
	"time"

	"github.com/nfrund/gymhub/internal/domain"
)

// Conn is one live transport connection. Its room membership is owned by the
// Registry; the transport only drains Outbound.
type Conn struct {
	ID          string
	Identity    domain.Identity
	ConnectedAt time.Time

	send chan []byte

	// guarded by Registry.mu
	room     string
	joinedAt time.Time
	closed   bool
}

// NewConn creates a connection with an outbound queue of size buffer.
func NewConn(id string, identity domain.Identity, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 1
	}
	return &Conn{
		ID:          id,
		Identity:    identity,
		ConnectedAt: time.Now(),
		send:        make(chan []byte, buffer),
	}
}

// Outbound yields frames queued for this connection. It is closed when the
// connection is removed from the registry.
func (c *Conn) Outbound() <-chan []byte {
	return c.send
}
