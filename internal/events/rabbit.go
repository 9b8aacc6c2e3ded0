package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/clinicbook/clinicbook-api/pkg/metrics"
)

// RabbitPublisher fans domain events out on a topic exchange, one routing key
// per event type. Publishing is best effort: a broker failure is counted and
// logged, never returned, so the booking flow does not depend on the broker.
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	metrics  *metrics.Collector
	log      *zap.Logger
	mu       sync.Mutex
}

func NewRabbitPublisher(amqpURI, exchange string, collector *metrics.Collector, log *zap.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(amqpURI)
	if err != nil {
		return nil, err
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}
	return &RabbitPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		metrics:  collector,
		log:      log,
	}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, eventType string, payload any) {
	body, err := json.Marshal(Envelope{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		p.metrics.EventsDroppedTotal.Inc()
		p.log.Error("failed to encode event", zap.String("type", eventType), zap.Error(err))
		return
	}

	// amqp channels are not safe for concurrent publishes.
	p.mu.Lock()
	err = p.channel.PublishWithContext(ctx, p.exchange, eventType, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	p.mu.Unlock()
	if err != nil {
		p.metrics.EventsDroppedTotal.Inc()
		p.log.Error("failed to publish event",
			zap.String("type", eventType),
			zap.String("exchange", p.exchange),
			zap.Error(err),
		)
		return
	}
	p.metrics.EventsPublishedTotal.WithLabelValues(eventType).Inc()
}

func (p *RabbitPublisher) Close() error {
	if p == nil || p.channel == nil {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
