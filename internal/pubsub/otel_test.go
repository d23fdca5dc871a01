package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupOTel(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled tracing returns a no-op tracer", func(t *testing.T) {
		tracer, cleanup, err := SetupOTel(ctx, TracingConfig{Enabled: false})
		require.NoError(t, err)
		require.NotNil(t, tracer)
		defer cleanup()

		_, span := tracer.Start(ctx, "noop")
		assert.False(t, span.SpanContext().IsValid())
		span.End()
	})

	t.Run("enabled tracing with unreachable collector still initializes", func(t *testing.T) {
		tracer, cleanup, err := SetupOTel(ctx, TracingConfig{
			Enabled:     true,
			ServiceName: "gymhub-test",
			Version:     "test",
			ZipkinURL:   "http://invalid-url:9411/api/v2/spans",
		})
		require.NoError(t, err)
		require.NotNil(t, tracer)
		cleanup()
	})
}

func TestTracedBridgeDeliversMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracer, cleanup, err := SetupOTel(ctx, TracingConfig{Enabled: false})
	require.NoError(t, err)
	defer cleanup()

	bridge := NewWatermillBridge(WithTracer(tracer))
	defer bridge.Close()

	got := make(chan Message, 1)
	require.NoError(t, bridge.Subscribe(ctx, "test.traced", func(ctx context.Context, msg Message) error {
		got <- msg
		return nil
	}))

	require.NoError(t, bridge.Publish(ctx, Message{Topic: "test.traced", UserID: "u1", Payload: []byte(`{}`)}))
	msg := <-got
	assert.Equal(t, "u1", msg.UserID)
}

func TestPreview(t *testing.T) {
	short := []byte("hello")
	assert.Equal(t, "hello", preview(short))

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'a'
	}
	p := preview(long)
	assert.Len(t, p, payloadPreviewLen+3)
}
