package realtime

import (
	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/pubsub"
	"github.com/nfrund/gymhub/internal/topicmgr"
)

// RoomBroadcastEvent carries encoded frames to every instance's registry.
var RoomBroadcastEvent = pubsub.NewEvent[RoomBroadcast](topicmgr.DefineFramework(topicmgr.Config{
	Name:        "realtime.room.broadcast",
	Description: "Encoded event frame to deliver to every connection in a gym room",
	Example:     `{"room":"gym-1","event":"message","frame":{"event":"message","data":{}}}`,
}))

// MembershipEvent is published when a connection joins or leaves a room.
var MembershipEvent = pubsub.NewEvent[Membership](topicmgr.DefineFramework(topicmgr.Config{
	Name:        "realtime.room.membership",
	Description: "A connection joined or left a gym room",
	Example:     `{"connId":"c1","userId":"member-1","room":"gym-1","joined":true}`,
}))

// MessageSentEvent is published after a direct message was persisted and broadcast.
var MessageSentEvent = pubsub.NewEvent[domain.Message](topicmgr.DefineModule(topicmgr.Config{
	Name:        "chat.message.sent",
	Module:      "chat",
	Description: "A direct message was relayed inside a gym",
	Example:     `{"id":"...","senderId":"member-1","receiverId":"trainer-1","gymId":"gym-1","message":"hi"}`,
}))

// AnnouncementChange is the payload of announcement lifecycle events.
type AnnouncementChange struct {
	Action       string               `json:"action"`
	GymID        string               `json:"gymId"`
	ActorID      string               `json:"actorId"`
	Announcement *domain.Announcement `json:"announcement,omitempty"`
	ID           string               `json:"id"`
}

// Announcement actions.
const (
	ActionPosted  = "posted"
	ActionUpdated = "updated"
	ActionRemoved = "removed"
)

// AnnouncementPostedEvent, AnnouncementUpdatedEvent and AnnouncementRemovedEvent
// mirror the room events on the bus.
var (
	AnnouncementPostedEvent = pubsub.NewEvent[AnnouncementChange](topicmgr.DefineModule(topicmgr.Config{
		Name:        "announcement.posted",
		Module:      "announcement",
		Description: "A gym posted an announcement",
	}))
	AnnouncementUpdatedEvent = pubsub.NewEvent[AnnouncementChange](topicmgr.DefineModule(topicmgr.Config{
		Name:        "announcement.updated",
		Module:      "announcement",
		Description: "A gym edited an announcement",
	}))
	AnnouncementRemovedEvent = pubsub.NewEvent[AnnouncementChange](topicmgr.DefineModule(topicmgr.Config{
		Name:        "announcement.removed",
		Module:      "announcement",
		Description: "A gym deleted an announcement",
	}))
)
