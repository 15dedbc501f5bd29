// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

const (
	OrderCreated       = "order.created"
	OrderStatusUpdated = "order.status_updated"
)

// OrderEvent is the JSON payload written to the order topic.
type OrderEvent struct {
	Type          string             `json:"type"`
	OrderID       string             `json:"orderId"`
	UserID        string             `json:"userId"`
	Status        domain.OrderStatus `json:"status"`
	TotalPrice    decimal.Decimal    `json:"totalPrice"`
	TotalQuantity int                `json:"totalQuantity"`
	OccurredAt    time.Time          `json:"occurredAt"`
}

// NewOrderEvent builds an event of type typ from o.
func NewOrderEvent(typ string, o domain.Order) OrderEvent {
	return OrderEvent{
		Type:          typ,
		OrderID:       o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		TotalPrice:    o.TotalPrice,
		TotalQuantity: o.TotalQuantity,
		OccurredAt:    time.Now().UTC(),
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes order events keyed by order id.
type Producer struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

func NewProducer(brokers []string, topic string, l *zap.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}
	l = logger.OrNop(l).Named("kafka_producer")
	l.Info("initialized", zap.String("topic", topic), zap.Strings("brokers", brokers))
	return &Producer{writer: w, topic: topic, logger: l}
}

func (p *Producer) Publish(ctx context.Context, evt OrderEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("publish failed", zap.String("type", evt.Type), zap.String("order_id", evt.OrderID), zap.Error(err))
		return err
	}
	p.logger.Debug("published", zap.String("type", evt.Type), zap.String("order_id", evt.OrderID))
	return nil
}

func (p *Producer) Close() error {
	p.logger.Info("closing writer", zap.String("topic", p.topic))
	return p.writer.Close()
}

// Nop discards events. It is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }
