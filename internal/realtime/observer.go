package realtime

import (
	"context"
	"log/slog"

	"github.com/nfrund/gymhub/internal/pubsub"
)

// BusObserver republishes registry membership changes as MembershipEvent.
type BusObserver struct {
	pub    pubsub.Publisher
	logger *slog.Logger
}

// NewBusObserver returns an observer publishing on pub.
func NewBusObserver(pub pubsub.Publisher) *BusObserver {
	return &BusObserver{pub: pub, logger: slog.Default()}
}

// MembershipChanged implements MembershipObserver.
func (o *BusObserver) MembershipChanged(m Membership) {
	if err := pubsub.Publish(context.Background(), o.pub, MembershipEvent, m.UserID, m); err != nil {
		o.logger.Error("Failed to publish membership change", "room", m.Room, "conn_id", m.ConnID, "error", err)
	}
}
