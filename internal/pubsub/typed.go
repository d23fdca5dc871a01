package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nfrund/gymhub/internal/topicmgr"
)

// Event ties a catalogued topic to its payload type.
type Event[T any] struct {
	topic topicmgr.Topic
}

// NewEvent registers topic in the default catalogue and returns a typed
// handle for it. Intended for package-level variables.
func NewEvent[T any](topic topicmgr.Topic) Event[T] {
	topicmgr.Default().MustRegister(topic)
	return Event[T]{topic: topic}
}

// Name returns the topic name.
func (e Event[T]) Name() string { return e.topic.Name() }

// Topic returns the catalogued definition.
func (e Event[T]) Topic() topicmgr.Topic { return e.topic }

// Publish encodes payload as JSON and publishes it on the event's topic.
func Publish[T any](ctx context.Context, p Publisher, e Event[T], userID string, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Name(), err)
	}
	return p.Publish(ctx, Message{
		Topic:   e.Name(),
		UserID:  userID,
		Payload: data,
	})
}

// Decode unmarshals a message received on the event's topic.
func Decode[T any](e Event[T], msg Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", e.Name(), err)
	}
	return v, nil
}

// Subscribe registers a typed handler for the event.
func Subscribe[T any](ctx context.Context, s Subscriber, e Event[T], fn func(ctx context.Context, payload T, msg Message) error) error {
	return s.Subscribe(ctx, e.Name(), func(ctx context.Context, msg Message) error {
		v, err := Decode(e, msg)
		if err != nil {
			return err
		}
		return fn(ctx, v, msg)
	})
}
