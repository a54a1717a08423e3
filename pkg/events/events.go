// Package events defines the order events emitted after a committed change
// and the publisher contract used to ship them to a broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

// Event types.
const (
	OrderPlaced  = "order.placed"
	OrderRevised = "order.revised"
	OrderRemoved = "order.removed"
)

// Version is the envelope schema version.
const Version = 1

// Envelope wraps every event on the wire.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// LinePayload describes one order line.
type LinePayload struct {
	LineID      int64           `json:"line_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// OrderPayload is carried by all order events. Lines and Total are empty
// for OrderRemoved.
type OrderPayload struct {
	OrderID int64            `json:"order_id"`
	Lines   []LinePayload    `json:"lines,omitempty"`
	Total   *decimal.Decimal `json:"total,omitempty"`
}

// Publisher ships envelopes. Implementations must not block the caller on
// broker I/O and report delivery failures themselves.
type Publisher interface {
	Publish(ctx context.Context, env Envelope)
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Envelope) {}

// New builds an envelope for payload. The trace id is taken from the span
// in ctx, if any.
func New(ctx context.Context, eventType, producer string, orderID int64, at time.Time, payload any) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  Version,
		OccurredAt:    at.UTC(),
		Producer:      producer,
		CorrelationID: fmt.Sprintf("%d", orderID),
		Payload:       body,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	return env, nil
}

// Decode unmarshals an envelope payload into T.
func Decode[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
