package pubsub

import (
	"context"
)

// Message is the structure passed between components on the bus.
type Message struct {
	// Topic identifies the channel the message belongs to (e.g. "chat.message.sent").
	Topic string
	// UserID identifies the user who caused the message, if any.
	UserID string
	// Payload is the raw, usually JSON encoded, body.
	Payload []byte
	// Metadata carries arbitrary string context (request ids, timestamps).
	Metadata map[string]string
}

// Handler processes a received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher sends messages to the bus.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber receives messages from the bus.
type Subscriber interface {
	// Subscribe registers handler for topic and returns once the subscription
	// is active. Delivery runs in the background until ctx is canceled.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}

// PubSub is a bus that can both publish and subscribe.
type PubSub interface {
	Publisher
	Subscriber
}
