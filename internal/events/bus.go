package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"nhanhsync/internal/logger"
)

// Event types the store side publishes.
const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	StockUpdated       = "stock.updated"
)

// Event is one message on the store-events topic.
type Event struct {
	Type      string    `json:"type"`
	EntityID  string    `json:"entity_id"`
	Status    string    `json:"status,omitempty"`
	Quantity  int       `json:"quantity,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher writes store events onto the bus. Each change in the local
// platform becomes an explicit message instead of an in-process callback.
type Publisher struct {
	writer *kafka.Writer
	logger *logger.Logger
}

func NewPublisher(brokers, topic string, logger *logger.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EntityID),
		Value: value,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
