package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/credivist/internal/domain"
	"github.com/opensource-finance/credivist/internal/metrics"
)

// ChannelBus is the in-process community tier bus. Delivery is best effort:
// a subscriber whose buffer is full misses the message. Subscribers of the
// global tenant receive every tenant's messages.
type ChannelBus struct {
	mu            sync.RWMutex
	bufferSize    int
	subscriptions map[string][]*channelSubscription
	closed        bool
}

type channelSubscription struct {
	id      string
	key     string
	topic   string
	handler domain.MessageHandler
	msgCh   chan *domain.Message
	ctx     context.Context
	cancel  context.CancelFunc
	bus     *ChannelBus
}

// NewChannelBus creates a channel bus with per-subscriber buffers.
func NewChannelBus(bufferSize int) *ChannelBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &ChannelBus{
		bufferSize:    bufferSize,
		subscriptions: make(map[string][]*channelSubscription),
	}
}

// Publish fans a message out to every subscriber of the tenant's topic.
func (b *ChannelBus) Publish(ctx context.Context, tenantID string, topic string, payload []byte) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus is closed")
	}

	msg := newMessage(ctx, tenantID, topic, payload)
	for _, sub := range b.matching(tenantID, topic) {
		select {
		case sub.msgCh <- msg:
			metrics.BusMessages.WithLabelValues(topic, "delivered").Inc()
		default:
			metrics.BusMessages.WithLabelValues(topic, "dropped").Inc()
			slog.Warn("subscriber buffer full, message dropped",
				"tenant_id", tenantID,
				"topic", topic,
				"subscription_id", sub.id,
			)
		}
	}
	return nil
}

// Subscribe registers a handler for a tenant's topic.
func (b *ChannelBus) Subscribe(ctx context.Context, tenantID string, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("bus is closed")
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &channelSubscription{
		id:      uuid.New().String(),
		key:     b.makeKey(tenantID, topic),
		topic:   topic,
		handler: handler,
		msgCh:   make(chan *domain.Message, b.bufferSize),
		ctx:     subCtx,
		cancel:  cancel,
		bus:     b,
	}
	b.subscriptions[sub.key] = append(b.subscriptions[sub.key], sub)

	go sub.run()
	return sub, nil
}

func (s *channelSubscription) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-s.msgCh:
			if !ok {
				return
			}
			if err := s.handler(s.ctx, msg); err != nil {
				metrics.BusMessages.WithLabelValues(s.topic, "handler_error").Inc()
				slog.Error("handler error",
					"topic", s.topic,
					"message_id", msg.ID,
					"error", err,
				)
			}
		}
	}
}

// Request publishes to topic and waits for a reply on a one-off reply topic.
// The responder receives the reply topic in Metadata["reply_to"].
func (b *ChannelBus) Request(ctx context.Context, tenantID string, topic string, payload []byte) ([]byte, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	replyCh := make(chan []byte, 1)
	replyTopic := topic + ".reply." + uuid.New().String()

	sub, err := b.Subscribe(ctx, tenantID, replyTopic, func(ctx context.Context, msg *domain.Message) error {
		select {
		case replyCh <- msg.Payload:
		default:
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	if err := b.publishWithReply(ctx, tenantID, topic, replyTopic, payload); err != nil {
		return nil, err
	}

	timer := time.NewTimer(requestTimeout(ctx))
	defer timer.Stop()

	select {
	case reply := <-replyCh:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("request timeout")
	}
}

func (b *ChannelBus) publishWithReply(ctx context.Context, tenantID, topic, replyTopic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus is closed")
	}

	subs := b.subscriptions[b.makeKey(tenantID, topic)]
	if len(subs) == 0 {
		return fmt.Errorf("no responders for %s", topic)
	}
	for _, sub := range subs {
		msg := newMessage(ctx, tenantID, topic, payload)
		msg.Metadata[MetaReplyTo] = replyTopic
		select {
		case sub.msgCh <- msg:
		default:
			metrics.BusMessages.WithLabelValues(topic, "dropped").Inc()
		}
	}
	return nil
}

// Ping reports whether the bus is open.
func (b *ChannelBus) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus is closed")
	}
	return nil
}

// Close stops every subscription.
func (b *ChannelBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, subs := range b.subscriptions {
		for _, sub := range subs {
			sub.cancel()
		}
	}
	b.subscriptions = make(map[string][]*channelSubscription)
	return nil
}

func (b *ChannelBus) remove(sub *channelSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscriptions[sub.key]
	for i, s := range subs {
		if s == sub {
			b.subscriptions[sub.key] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscriptions[sub.key]) == 0 {
		delete(b.subscriptions, sub.key)
	}
}

// matching returns the tenant's subscribers followed by the global ones.
// Callers hold b.mu.
func (b *ChannelBus) matching(tenantID, topic string) []*channelSubscription {
	subs := b.subscriptions[b.makeKey(tenantID, topic)]
	if tenantID == domain.GlobalTenantID {
		return subs
	}
	global := b.subscriptions[b.makeKey(domain.GlobalTenantID, topic)]
	if len(global) == 0 {
		return subs
	}
	return append(subs[:len(subs):len(subs)], global...)
}

func (b *ChannelBus) makeKey(tenantID, topic string) string {
	return tenantID + ":" + topic
}

// Unsubscribe stops delivery and removes the subscription from the bus.
func (s *channelSubscription) Unsubscribe() error {
	s.cancel()
	s.bus.remove(s)
	return nil
}

// Topic returns the subscribed topic.
func (s *channelSubscription) Topic() string {
	return s.topic
}
