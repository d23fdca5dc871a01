package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "gymhub:"

// redisEnvelope is the wire form of a Message on a Redis channel.
type redisEnvelope struct {
	UserID   string            `json:"user_id,omitempty"`
	Payload  []byte            `json:"payload"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RedisBridge implements PubSub on Redis Pub/Sub so several service
// instances share one bus. Delivery is at-most-once.
type RedisBridge struct {
	rdb    *redis.Client
	prefix string
	logger *slog.Logger

	mu   sync.Mutex
	subs []*redis.PubSub
}

// NewRedisBridge connects to addr and verifies connectivity.
func NewRedisBridge(ctx context.Context, addr string, db int) (*RedisBridge, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisBridgeFromClient(rdb, defaultRedisPrefix), nil
}

// NewRedisBridgeFromClient wraps an existing client. Channel names are
// prefix + topic.
func NewRedisBridgeFromClient(rdb *redis.Client, prefix string) *RedisBridge {
	return &RedisBridge{rdb: rdb, prefix: prefix, logger: slog.Default()}
}

func (b *RedisBridge) channel(topic string) string { return b.prefix + topic }

// Publish implements Publisher.
func (b *RedisBridge) Publish(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(redisEnvelope{
		UserID:   msg.UserID,
		Payload:  msg.Payload,
		Metadata: msg.Metadata,
	})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel(msg.Topic), raw).Err()
}

// Subscribe implements Subscriber. It waits for Redis to confirm the
// subscription before returning.
func (b *RedisBridge) Subscribe(ctx context.Context, topic string, handler Handler) error {
	ps := b.rdb.Subscribe(ctx, b.channel(topic))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, ps)
	b.mu.Unlock()

	ch := ps.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = ps.Close()
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var env redisEnvelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					b.logger.Warn("Dropping malformed bus message", "topic", topic, "error", err)
					continue
				}
				msg := Message{Topic: topic, UserID: env.UserID, Payload: env.Payload, Metadata: env.Metadata}
				if err := handler(ctx, msg); err != nil {
					b.logger.Error("Failed to handle message", "topic", topic, "error", err)
				}
			}
		}
	}()
	return nil
}

// Close ends all subscriptions and the client.
func (b *RedisBridge) Close() error {
	b.mu.Lock()
	for _, ps := range b.subs {
		_ = ps.Close()
	}
	b.subs = nil
	b.mu.Unlock()
	return b.rdb.Close()
}
