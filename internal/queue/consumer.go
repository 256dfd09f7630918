package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// Dispatcher delivers notifications to customers.
type Dispatcher interface {
	SendTicket(ctx context.Context, ev BookingConfirmedEvent) error
	SendRefundNotice(ctx context.Context, ev BookingRefundedEvent) error
}

// LogDispatcher writes one line per notification to its logger. It stands
// in for the e-mail sender.
type LogDispatcher struct {
	Log *zap.Logger
}

func (d LogDispatcher) SendTicket(_ context.Context, ev BookingConfirmedEvent) error {
	d.Log.Info("e-ticket dispatched",
		zap.String("booking_id", ev.BookingID),
		zap.String("email", ev.UserEmail),
		zap.String("movie", ev.MovieTitle),
		zap.String("screen", ev.ScreenName),
		zap.String("show", strings.TrimSpace(ev.ShowDate+" "+ev.ShowTime)),
		zap.Strings("seats", ev.Seats),
		zap.Float64("total", model.ToMajor(ev.TotalAmountMinor)),
		zap.String("confirmed_at", ev.ConfirmedAt),
	)
	return nil
}

func (d LogDispatcher) SendRefundNotice(_ context.Context, ev BookingRefundedEvent) error {
	d.Log.Info("refund notice dispatched",
		zap.String("booking_id", ev.BookingID),
		zap.String("email", ev.UserEmail),
		zap.String("refund_id", ev.RefundID),
		zap.Float64("amount", model.ToMajor(ev.RefundAmountMinor)),
		zap.String("reason", ev.Reason),
	)
	return nil
}

// Consumer reads both booking queues and hands events to a Dispatcher.
type Consumer struct {
	url        string
	dispatcher Dispatcher
	log        *zap.Logger
}

// NewConsumer builds a consumer for the broker at url.
func NewConsumer(url string, dispatcher Dispatcher, log *zap.Logger) *Consumer {
	return &Consumer{url: url, dispatcher: dispatcher, log: log.With(zap.String("component", "consumer"))}
}

// Run connects to the broker and consumes until ctx is done, reconnecting
// with exponential backoff. It returns ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set qos failed", zap.Error(err))
	}

	var deliveries []<-chan amqp.Delivery
	for _, q := range []string{QueueBookingConfirmed, QueueBookingRefunded} {
		if err := declare(ch, q); err != nil {
			return err
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", q, err)
		}
		deliveries = append(deliveries, msgs)
	}

	confirmed, refunded := deliveries[0], deliveries[1]
	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-confirmed:
		case d, ok = <-refunded:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.handle(ctx, d.RoutingKey, d.Body); err != nil {
			c.log.Error("handle message failed", zap.String("queue", d.RoutingKey), zap.Error(err))
			// reject without requeue to avoid tight redelivery loops
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

func (c *Consumer) handle(ctx context.Context, queue string, body []byte) error {
	switch queue {
	case QueueBookingConfirmed:
		var ev BookingConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.BookingID == "" {
			return errors.New("event has no booking id")
		}
		return c.dispatcher.SendTicket(ctx, ev)
	case QueueBookingRefunded:
		var ev BookingRefundedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.BookingID == "" {
			return errors.New("event has no booking id")
		}
		return c.dispatcher.SendRefundNotice(ctx, ev)
	}
	return fmt.Errorf("unexpected queue %q", queue)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
