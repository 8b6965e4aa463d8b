package testutils

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/pliiiz/pliiiz/internal/pubsub"
	"github.com/stretchr/testify/require"
)

// RecordingPublisher keeps every published message in memory.
type RecordingPublisher struct {
	mu       sync.Mutex
	messages []pubsub.Message
}

func (p *RecordingPublisher) Publish(ctx context.Context, msg pubsub.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

// Topic returns the messages published on topic, in order.
func (p *RecordingPublisher) Topic(topic string) []pubsub.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pubsub.Message
	for _, m := range p.messages {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Decode unmarshals every payload published for event.
func Decode[T any](t *testing.T, p *RecordingPublisher, event pubsub.Event[T]) []T {
	t.Helper()
	var out []T
	for _, m := range p.Topic(event.Name()) {
		var v T
		require.NoError(t, json.Unmarshal(m.Payload, &v))
		out = append(out, v)
	}
	return out
}

var _ pubsub.Publisher = (*RecordingPublisher)(nil)

// MemoryBus delivers every published message synchronously to the handlers
// subscribed to its topic. Handler errors are returned to the publisher.
type MemoryBus struct {
	RecordingPublisher
	hmu      sync.RWMutex
	handlers map[string][]pubsub.Handler
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: map[string][]pubsub.Handler{}}
}

func (b *MemoryBus) Publish(ctx context.Context, msg pubsub.Message) error {
	if err := b.RecordingPublisher.Publish(ctx, msg); err != nil {
		return err
	}
	b.hmu.RLock()
	handlers := append([]pubsub.Handler(nil), b.handlers[msg.Topic]...)
	b.hmu.RUnlock()
	for _, h := range handlers {
		if err := h(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string, handler pubsub.Handler) error {
	b.hmu.Lock()
	defer b.hmu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

var _ pubsub.Bus = (*MemoryBus)(nil)
