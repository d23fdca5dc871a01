package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nfrund/gymhub/internal/pubsub"
)

// Emitter delivers an event to every connection in a room.
type Emitter interface {
	Emit(ctx context.Context, roomID, event string, payload any) error
}

// LocalEmitter delivers straight into an in-process registry.
type LocalEmitter struct {
	registry *Registry
}

// NewLocalEmitter returns an emitter bound to registry.
func NewLocalEmitter(registry *Registry) *LocalEmitter {
	return &LocalEmitter{registry: registry}
}

// Emit implements Emitter.
func (e *LocalEmitter) Emit(_ context.Context, roomID, event string, payload any) error {
	_, err := e.registry.Broadcast(roomID, event, payload)
	return err
}

// RoomBroadcast is the bus payload carrying one encoded frame for a room.
type RoomBroadcast struct {
	Room  string          `json:"room"`
	Event string          `json:"event"`
	Frame json.RawMessage `json:"frame"`
}

// BusEmitter publishes room frames on the bus. Every instance runs
// ServeBroadcasts to hand them to its local registry.
type BusEmitter struct {
	pub pubsub.Publisher
}

// NewBusEmitter returns an emitter publishing on pub.
func NewBusEmitter(pub pubsub.Publisher) *BusEmitter {
	return &BusEmitter{pub: pub}
}

// Emit implements Emitter.
func (e *BusEmitter) Emit(ctx context.Context, roomID, event string, payload any) error {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	if err := pubsub.Publish(ctx, e.pub, RoomBroadcastEvent, "", RoomBroadcast{Room: roomID, Event: event, Frame: frame}); err != nil {
		return fmt.Errorf("publish %s to room %s: %w", event, roomID, err)
	}
	return nil
}

// ServeBroadcasts subscribes registry to room frames published by any BusEmitter.
func ServeBroadcasts(ctx context.Context, sub pubsub.Subscriber, registry *Registry) error {
	return pubsub.Subscribe(ctx, sub, RoomBroadcastEvent, func(_ context.Context, b RoomBroadcast, _ pubsub.Message) error {
		registry.BroadcastFrame(b.Room, b.Event, b.Frame)
		return nil
	})
}
