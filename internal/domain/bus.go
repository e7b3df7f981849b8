package domain

import (
	"context"
)

// EventBus moves assessment events between the API and workers. Every
// operation is scoped to a tenant.
type EventBus interface {
	Publish(ctx context.Context, tenantID string, topic string, payload []byte) error
	Subscribe(ctx context.Context, tenantID string, topic string, handler MessageHandler) (Subscription, error)
	// Request publishes and waits for the first reply.
	Request(ctx context.Context, tenantID string, topic string, payload []byte) ([]byte, error)
	Ping(ctx context.Context) error
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message is the bus envelope. Metadata carries trace and reply ids.
type Message struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	Unsubscribe() error
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `json:"type"`

	// Channel settings (Community tier)
	ChannelBufferSize int `json:"channelBufferSize"`

	// NATS settings (Pro tier)
	NATSUrl           string `json:"natsUrl"`
	NATSToken         string `json:"-"`
	NATSMaxReconnects int    `json:"natsMaxReconnects"`
	NATSReconnectWait int    `json:"natsReconnectWait"` // seconds

	// NATSQueue, when set, load-balances subscribers across processes.
	NATSQueue string `json:"natsQueue"`
}

// Standard topic names for the assessment pipeline.
const (
	TopicAssessmentRequested = "credivist.assessment.requested"
	TopicAssessmentCompleted = "credivist.assessment.completed"
	TopicAssessmentDeclined  = "credivist.assessment.declined"
)
