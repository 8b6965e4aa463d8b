package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// startMessageSpan opens a span for one bus operation. Payloads are not
// recorded: events carry user data.
func startMessageSpan(tracer trace.Tracer, op, topic string, msg *message.Message) (context.Context, trace.Span) {
	ctx := msg.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	kind := trace.SpanKindConsumer
	if op == "publish" {
		kind = trace.SpanKindProducer
	}
	return tracer.Start(ctx, "pubsub."+op+" "+topic,
		trace.WithSpanKind(kind),
		trace.WithAttributes(
			attribute.String("messaging.system", "watermill"),
			attribute.String("messaging.operation", op),
			attribute.String("messaging.destination", topic),
			attribute.String("messaging.message_id", msg.UUID),
			attribute.String("pliiiz.user_id", msg.Metadata.Get(metaKeyUserID)),
			attribute.Int("messaging.message_payload_size_bytes", len(msg.Payload)),
		),
	)
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TracedHandler wraps a watermill handler so each delivery runs inside a
// "pubsub.process <topic>" span.
func TracedHandler(tracer trace.Tracer) func(message.HandlerFunc) message.HandlerFunc {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			ctx, span := startMessageSpan(tracer, "process", msg.Metadata.Get(metaKeyTopic), msg)
			defer span.End()
			msg.SetContext(ctx)

			produced, err := h(msg)
			if err != nil {
				failSpan(span, err)
				return nil, err
			}
			return produced, nil
		}
	}
}

// tracedPublisher opens a "pubsub.publish <topic>" span per message.
type tracedPublisher struct {
	message.Publisher
	tracer trace.Tracer
}

func newTracedPublisher(pub message.Publisher, tracer trace.Tracer) *tracedPublisher {
	return &tracedPublisher{Publisher: pub, tracer: tracer}
}

func (p *tracedPublisher) Publish(topic string, messages ...*message.Message) error {
	spans := make([]trace.Span, 0, len(messages))
	for _, msg := range messages {
		ctx, span := startMessageSpan(p.tracer, "publish", topic, msg)
		msg.SetContext(ctx)
		spans = append(spans, span)
	}

	err := p.Publisher.Publish(topic, messages...)
	for _, span := range spans {
		if err != nil {
			failSpan(span, err)
		}
		span.End()
	}
	return err
}
