// Package bus carries assessment events between the API and the worker.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/credivist/internal/domain"
)

const (
	defaultBufferSize     = 1000
	defaultRequestTimeout = 30 * time.Second

	metaTraceID = "trace_id"
	metaSpanID  = "span_id"

	// MetaReplyTo is the metadata key holding a request's reply topic.
	MetaReplyTo = "reply_to"
)

// New creates the event bus named by cfg.Type: "channel" or "nats".
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil
	case "nats":
		return NewNATSBus(cfg)
	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// PublishJSON encodes v and publishes it.
func PublishJSON(ctx context.Context, b domain.EventBus, tenantID, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", topic, err)
	}
	return b.Publish(ctx, tenantID, topic, payload)
}

// TraceID returns the trace id carried in a message, if any.
func TraceID(msg *domain.Message) string {
	if msg == nil || msg.Metadata == nil {
		return ""
	}
	return msg.Metadata[metaTraceID]
}

func newMessage(ctx context.Context, tenantID, topic string, payload []byte) *domain.Message {
	msg := &domain.Message{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Topic:     topic,
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UnixNano(),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		msg.Metadata[metaTraceID] = sc.TraceID().String()
		msg.Metadata[metaSpanID] = sc.SpanID().String()
	}
	return msg
}

func requestTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline)
	}
	return defaultRequestTimeout
}

// Reply answers a request message. It is a no-op for messages that were
// not sent with Request.
func Reply(ctx context.Context, b domain.EventBus, msg *domain.Message, payload []byte) error {
	if msg == nil || msg.Metadata == nil || msg.Metadata[MetaReplyTo] == "" {
		return nil
	}
	return b.Publish(ctx, msg.TenantID, msg.Metadata[MetaReplyTo], payload)
}
