package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Metadata keys used to carry Message fields through a watermill message.
	metaKeyUserID = "user_id"
	metaKeyTopic  = "topic"
)

// WatermillBridge implements PubSub on top of watermill's in-memory GoChannel.
type WatermillBridge struct {
	pub    message.Publisher
	sub    message.Subscriber
	logger *slog.Logger
}

// WatermillOption configures a WatermillBridge.
type WatermillOption func(*watermillOptions)

type watermillOptions struct {
	tracer   trace.Tracer
	blocking bool
	buffer   int64
	logger   *slog.Logger
}

// WithTracer wraps publishing in OpenTelemetry spans.
func WithTracer(t trace.Tracer) WatermillOption {
	return func(o *watermillOptions) { o.tracer = t }
}

// WithBlockingPublish makes Publish wait until every subscriber has acked,
// which preserves publish order per subscriber.
func WithBlockingPublish() WatermillOption {
	return func(o *watermillOptions) { o.blocking = true }
}

// WithOutputBuffer sets the per-subscriber channel buffer.
func WithOutputBuffer(n int64) WatermillOption {
	return func(o *watermillOptions) { o.buffer = n }
}

// WithBusLogger sets the logger used for delivery failures.
func WithBusLogger(l *slog.Logger) WatermillOption {
	return func(o *watermillOptions) { o.logger = l }
}

// NewWatermillBridge creates an in-process bus.
func NewWatermillBridge(opts ...WatermillOption) *WatermillBridge {
	o := watermillOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	goChannel := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            o.buffer,
			BlockPublishUntilSubscriberAck: o.blocking,
		},
		watermill.NewStdLogger(false, false),
	)

	var pub message.Publisher = goChannel
	if o.tracer != nil {
		pub = NewPublisherTracingMiddleware(goChannel, o.tracer)
	}

	return &WatermillBridge{
		pub:    pub,
		sub:    goChannel,
		logger: o.logger,
	}
}

func toWatermill(ctx context.Context, msg Message) *message.Message {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)
	wmMsg.SetContext(ctx)
	wmMsg.Metadata.Set(metaKeyUserID, msg.UserID)
	wmMsg.Metadata.Set(metaKeyTopic, msg.Topic)
	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}
	return wmMsg
}

func fromWatermill(wmMsg *message.Message) Message {
	metadata := make(map[string]string, len(wmMsg.Metadata))
	for k, v := range wmMsg.Metadata {
		if k != metaKeyTopic && k != metaKeyUserID {
			metadata[k] = v
		}
	}
	return Message{
		Topic:    wmMsg.Metadata.Get(metaKeyTopic),
		UserID:   wmMsg.Metadata.Get(metaKeyUserID),
		Payload:  wmMsg.Payload,
		Metadata: metadata,
	}
}

// Publish implements Publisher.
func (wb *WatermillBridge) Publish(ctx context.Context, msg Message) error {
	return wb.pub.Publish(msg.Topic, toWatermill(ctx, msg))
}

// Subscribe implements Subscriber. Messages of one subscription are handled
// sequentially; a handler error nacks the message.
func (wb *WatermillBridge) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := wb.sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for wmMsg := range messages {
			if err := handler(ctx, fromWatermill(wmMsg)); err != nil {
				wb.logger.Error("Failed to handle message", "topic", topic, "msg_id", wmMsg.UUID, "error", err)
				// GoChannel redelivers nacked messages forever; ack to drop.
				wmMsg.Ack()
				continue
			}
			wmMsg.Ack()
		}
		wb.logger.Debug("Subscription message loop ended", "topic", topic)
	}()

	return nil
}

// Close shuts the bus down and ends all subscriptions.
func (wb *WatermillBridge) Close() error {
	return wb.sub.Close()
}
