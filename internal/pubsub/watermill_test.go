package pubsub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type collector struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *collector) handle(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *collector) snapshot() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.msgs...)
}

func TestWatermillBridge_FanOutPreservesOrder(t *testing.T) {
	bridge := NewWatermillBridge()
	defer bridge.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, b := &collector{}, &collector{}
	require.NoError(t, bridge.Subscribe(ctx, "frames", a.handle))
	require.NoError(t, bridge.Subscribe(ctx, "frames", b.handle))

	for _, p := range []string{"one", "two", "three"} {
		require.NoError(t, bridge.Publish(ctx, Message{Topic: "frames", UserID: "u1", Payload: []byte(p)}))
	}

	// Publish blocks until acked, so delivery is complete here.
	for _, c := range []*collector{a, b} {
		got := c.snapshot()
		require.Len(t, got, 3)
		assert.Equal(t, "one", string(got[0].Payload))
		assert.Equal(t, "two", string(got[1].Payload))
		assert.Equal(t, "three", string(got[2].Payload))
		assert.Equal(t, "u1", got[0].UserID)
		assert.Equal(t, "frames", got[0].Topic)
	}
}

func TestWatermillBridge_MetadataRoundTrip(t *testing.T) {
	bridge := NewWatermillBridge()
	defer bridge.Close()
	ctx := context.Background()

	c := &collector{}
	require.NoError(t, bridge.Subscribe(ctx, "meta", c.handle))
	require.NoError(t, bridge.Publish(ctx, Message{
		Topic:    "meta",
		Payload:  []byte("x"),
		Metadata: map[string]string{"request_id": "req-1"},
	}))

	got := c.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "req-1", got[0].Metadata["request_id"])
	assert.NotContains(t, got[0].Metadata, metaKeyTopic)
}

func TestWatermillBridge_HandlerErrorDoesNotRedeliver(t *testing.T) {
	bridge := NewWatermillBridge()
	defer bridge.Close()
	ctx := context.Background()

	var mu sync.Mutex
	calls := 0
	require.NoError(t, bridge.Subscribe(ctx, "err", func(context.Context, Message) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("boom")
	}))

	require.NoError(t, bridge.Publish(ctx, Message{Topic: "err", Payload: []byte("x")}))
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestWatermillBridge_CancelStopsDelivery(t *testing.T) {
	bridge := NewWatermillBridge()
	defer bridge.Close()

	subCtx, cancel := context.WithCancel(context.Background())
	c := &collector{}
	require.NoError(t, bridge.Subscribe(subCtx, "stop", c.handle))
	require.NoError(t, bridge.Publish(context.Background(), Message{Topic: "stop", Payload: []byte("a")}))

	cancel()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, bridge.Publish(context.Background(), Message{Topic: "stop", Payload: []byte("b")}))
	time.Sleep(20 * time.Millisecond)

	got := c.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "a", string(got[0].Payload))
}

func TestWatermillBridge_WithTracer(t *testing.T) {
	bridge := NewWatermillBridge(WithTracer(noop.NewTracerProvider().Tracer("test")))
	defer bridge.Close()
	ctx := context.Background()

	c := &collector{}
	require.NoError(t, bridge.Subscribe(ctx, "traced", c.handle))
	require.NoError(t, bridge.Publish(ctx, Message{Topic: "traced", Payload: []byte(`{"event":"message"}`)}))
	assert.Len(t, c.snapshot(), 1)
}
