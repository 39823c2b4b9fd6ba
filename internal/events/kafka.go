package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/rshallam/drift-beacon/internal/hub"
)

// writeTimeout caps how long a slow broker may delay the poll loop, since
// subscribers are notified synchronously after each tick.
const writeTimeout = 5 * time.Second

// Envelope frames an event for the wire.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  Type            `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type messageWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// KafkaForwarder publishes session events to a Kafka topic. It implements
// the poll subscriber contract; event delivery is best-effort and never
// fails the tick that produced the events.
type KafkaForwarder struct {
	writer messageWriter
	logger *log.Logger
}

// ForwarderOption configures a KafkaForwarder.
type ForwarderOption func(*KafkaForwarder)

// WithForwarderLogger overrides the forwarder's logger.
func WithForwarderLogger(logger *log.Logger) ForwarderOption {
	return func(f *KafkaForwarder) { f.logger = logger }
}

// NewKafkaForwarder builds a forwarder writing to topic on the given brokers.
func NewKafkaForwarder(brokers []string, topic string, opts ...ForwarderOption) *KafkaForwarder {
	f := &KafkaForwarder{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		logger: log.New(log.Writer(), "[events] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// OnSnapshot publishes every event of the tick as one batch. Failures are
// logged and dropped: the snapshot remains authoritative and the next tick
// produces fresh events.
func (f *KafkaForwarder) OnSnapshot(ctx context.Context, _ *hub.Snapshot, evts []Event) {
	if len(evts) == 0 {
		return
	}

	messages := make([]kafka.Message, 0, len(evts))
	for _, evt := range evts {
		payload, err := json.Marshal(evt)
		if err != nil {
			f.logger.Printf("drop %s event: encode payload: %v", evt.EventType(), err)
			continue
		}
		value, err := json.Marshal(Envelope{
			EventID:    uuid.NewString(),
			EventType:  evt.EventType(),
			OccurredAt: time.Now().UTC(),
			Payload:    payload,
		})
		if err != nil {
			f.logger.Printf("drop %s event: encode envelope: %v", evt.EventType(), err)
			continue
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(evt.PartitionKey()),
			Value: value,
		})
	}
	if len(messages) == 0 {
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := f.writer.WriteMessages(writeCtx, messages...); err != nil {
		f.logger.Printf("publish %d event(s) failed: %v", len(messages), err)
	}
}

// Close releases the underlying writer.
func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}
