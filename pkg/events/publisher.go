// Package events publishes domain events as JSON over NATS with trace context in the headers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// Event is the envelope written to the bus.
type Event struct {
	Type        string      `json:"type"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Data        interface{} `json:"data,omitempty"`
}

// Publisher emits domain events. Publishing is fire-and-forget for callers.
type Publisher interface {
	Publish(ctx context.Context, eventType, aggregateID string, data interface{})
}

// Noop drops every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, string, string, interface{}) {}

type msgConn interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSPublisher writes events to subjects of the form <prefix>.<event type>.
type NATSPublisher struct {
	conn   msgConn
	prefix string
	logger *zap.Logger
}

// Connect dials NATS and returns a publisher plus the connection for shutdown.
func Connect(url, prefix string, logger *zap.Logger) (*NATSPublisher, *nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("roadside-assist-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return NewNATSPublisher(nc, prefix, logger), nc, nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn msgConn, prefix string, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, prefix: strings.Trim(prefix, "."), logger: logger}
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish implements Publisher. Failures are logged, never returned.
func (p *NATSPublisher) Publish(ctx context.Context, eventType, aggregateID string, data interface{}) {
	payload, err := json.Marshal(Event{
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Data:        data,
	})
	if err != nil {
		p.logger.Warn("marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}
	msg := &nats.Msg{Subject: p.Subject(eventType), Data: payload}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	if err := p.conn.PublishMsg(msg); err != nil {
		p.logger.Warn("publish event", zap.String("subject", msg.Subject), zap.String("aggregate_id", aggregateID), zap.Error(err))
	}
}

// headerCarrier lets the otel propagator read and write NATS headers.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}
