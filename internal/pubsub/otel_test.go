package pubsub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupOTel(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled tracing", func(t *testing.T) {
		tracer, cleanup, err := SetupOTel(ctx, TracingConfig{Enabled: false})
		require.NoError(t, err)
		require.NotNil(t, tracer)
		require.NotNil(t, cleanup)

		_, span := tracer.Start(ctx, "test")
		span.End()
		cleanup()
	})

	t.Run("enabled tracing with unreachable collector", func(t *testing.T) {
		tracer, cleanup, err := SetupOTel(ctx, TracingConfig{
			Enabled:     true,
			ServiceName: "test-service",
			ZipkinURL:   "http://invalid-url:9411/api/v2/spans",
		})
		require.NoError(t, err)
		require.NotNil(t, tracer)
		cleanup()
	})
}

func TestLoadTracingConfigFromEnv(t *testing.T) {
	t.Setenv("PUBSUB_TRACING_ENABLED", "true")
	t.Setenv("PUBSUB_TRACING_SERVICE_NAME", "svc")
	t.Setenv("PUBSUB_TRACING_ZIPKIN_URL", "")

	cfg := LoadTracingConfigFromEnv()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "svc", cfg.ServiceName)
	assert.Equal(t, DefaultTracingConfig().ZipkinURL, cfg.ZipkinURL)
}

func TestBusRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	bus := NewWatermillBridge(provider.Tracer("test"))
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	require.NoError(t, bus.Subscribe(ctx, "gifts.offered", func(ctx context.Context, msg Message) error {
		close(done)
		return errors.New("handler failed")
	}))
	require.NoError(t, bus.Publish(ctx, Message{Topic: "gifts.offered", UserID: "user:ana", Payload: []byte(`{"secret":"x"}`)}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	require.Eventually(t, func() bool { return len(recorder.Ended()) == 2 }, 2*time.Second, 10*time.Millisecond)
	names := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range recorder.Ended() {
		names[s.Name()] = s
		for _, kv := range s.Attributes() {
			assert.NotContains(t, kv.Value.Emit(), "secret")
		}
	}
	require.Contains(t, names, "pubsub.publish gifts.offered")
	require.Contains(t, names, "pubsub.process gifts.offered")
	assert.Equal(t, codes.Error, names["pubsub.process gifts.offered"].Status().Code)
}
