package kafka

import (
	"encoding/json"
	"time"
)

// Topics для Kafka.
const (
	TopicOrderEvents = "storefront.order.events"
)

// Kafka headers с метаданными outbox-сообщения.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
)

// Envelope: формат сообщения, который видят потребители топика.
type Envelope struct {
	ID            string    `json:"id"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id"`
	EventType     string    `json:"event_type"`
	PublishedAt   time.Time `json:"published_at"`
}

// Message: тело сообщения в топике: Envelope и исходный payload события.
type Message struct {
	Envelope
	Payload json.RawMessage `json:"payload"`
}
