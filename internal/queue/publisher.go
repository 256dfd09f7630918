package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// Publisher publishes booking events. Each publish dials the broker,
// declares the durable queue and sends one persistent message, so a broker
// outage only costs the notification.
type Publisher struct {
	url string
	log *zap.Logger
	now func() time.Time
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{url: url, log: log.With(zap.String("component", "publisher")), now: time.Now}
}

// BookingConfirmed publishes a BookingConfirmedEvent.
func (p *Publisher) BookingConfirmed(ctx context.Context, d model.BookingDetail) error {
	return p.publish(ctx, QueueBookingConfirmed, NewBookingConfirmedEvent(d, p.now()))
}

// BookingRefunded publishes a BookingRefundedEvent.
func (p *Publisher) BookingRefunded(ctx context.Context, d model.BookingDetail, refundID, reason string) error {
	return p.publish(ctx, QueueBookingRefunded, NewBookingRefundedEvent(d, refundID, reason, p.now()))
}

func (p *Publisher) publish(ctx context.Context, queue string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch, queue); err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		return fmt.Errorf("publish %s: %w", queue, err)
	}
	p.log.Debug("event published", zap.String("queue", queue), zap.Int("bytes", len(body)))
	return nil
}

func declare(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", queue, err)
	}
	return nil
}
