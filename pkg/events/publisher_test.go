package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type connStub struct {
	msgs []*nats.Msg
	err  error
}

func (c *connStub) PublishMsg(msg *nats.Msg) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestPublishWritesJSONToPrefixedSubject(t *testing.T) {
	conn := &connStub{}
	pub := NewNATSPublisher(conn, "roadside.", nil)

	pub.Publish(context.Background(), "emergency.created", "e-1", map[string]string{"priority": "critical"})

	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "roadside.emergency.created", conn.msgs[0].Subject)
	var evt Event
	require.NoError(t, json.Unmarshal(conn.msgs[0].Data, &evt))
	assert.Equal(t, "emergency.created", evt.Type)
	assert.Equal(t, "e-1", evt.AggregateID)
	assert.False(t, evt.OccurredAt.IsZero())
}

func TestPublishInjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	conn := &connStub{}
	NewNATSPublisher(conn, "", nil).Publish(ctx, "diagnosis.completed", "d-1", nil)

	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "diagnosis.completed", conn.msgs[0].Subject)
	assert.Contains(t, conn.msgs[0].Header.Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestPublishSwallowsTransportErrors(t *testing.T) {
	conn := &connStub{err: errors.New("nats: connection closed")}
	assert.NotPanics(t, func() {
		NewNATSPublisher(conn, "x", nil).Publish(context.Background(), "emergency.cancelled", "e-2", nil)
	})
	Noop{}.Publish(context.Background(), "ignored", "id", nil)
}
