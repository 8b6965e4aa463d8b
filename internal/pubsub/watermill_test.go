package pubsub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeting struct {
	Text string `json:"text"`
}

var greeted = NewEvent[greeting]("test.greeted")

func TestTypedRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewWatermillBridge(nil)
	defer bus.Close()

	got := make(chan greeting, 1)
	require.NoError(t, Subscribe(ctx, bus, greeted, func(ctx context.Context, g greeting) error {
		got <- g
		return nil
	}))

	require.NoError(t, Publish(ctx, bus, greeted, "user:1", greeting{Text: "hi"}))

	select {
	case g := <-got:
		assert.Equal(t, "hi", g.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestFailingHandlerDoesNotBlockLaterMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewWatermillBridge(nil)
	defer bus.Close()

	seen := make(chan Message, 4)
	require.NoError(t, bus.Subscribe(ctx, "test.flaky", func(ctx context.Context, msg Message) error {
		seen <- msg
		return errors.New("boom")
	}))

	for i := 0; i < 2; i++ {
		require.NoError(t, bus.Publish(ctx, Message{Topic: "test.flaky", UserID: "u", Metadata: map[string]string{"n": "x"}}))
	}

	for i := 0; i < 2; i++ {
		select {
		case msg := <-seen:
			assert.Equal(t, "test.flaky", msg.Topic)
			assert.Equal(t, "u", msg.UserID)
			assert.Equal(t, "x", msg.Metadata["n"])
		case <-time.After(2 * time.Second):
			t.Fatalf("message %d not delivered", i)
		}
	}
}
