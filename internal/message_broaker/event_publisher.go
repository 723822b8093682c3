package message_broaker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is the envelope published for every domain event.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	StoreID    int64          `json:"store_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// EventPublisher publishes domain events on a best-effort basis: a failed
// publish is logged and never fails the caller.
type EventPublisher struct {
	broker MessageBroker
	logger *zap.Logger
	now    func() time.Time
}

// NewEventPublisher returns a publisher over broker. A nil broker yields a
// publisher that drops every event.
func NewEventPublisher(broker MessageBroker, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{broker: broker, logger: logger, now: time.Now}
}

func (p *EventPublisher) Enabled() bool {
	return p != nil && p.broker != nil
}

// Publish sends an event with the given type as routing key and reports
// whether the broker accepted it.
func (p *EventPublisher) Publish(ctx context.Context, eventType string, storeID int64, data map[string]any) bool {
	if !p.Enabled() {
		return false
	}
	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		StoreID:    storeID,
		OccurredAt: p.now().UTC(),
		Data:       data,
	}
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("failed to encode event", zap.String("event", eventType), zap.Error(err))
		return false
	}
	if err := p.broker.Publish(ctx, eventType, body); err != nil {
		p.logger.Warn("failed to publish event", zap.String("event", eventType), zap.Error(err))
		return false
	}
	return true
}

// DecodeEvent parses a message body produced by Publish.
func DecodeEvent(body []byte) (Event, error) {
	var event Event
	err := json.Unmarshal(body, &event)
	return event, err
}
