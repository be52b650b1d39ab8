package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"restaurant-core/logger"
	"restaurant-core/services"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends notifications to a topic exchange as persistent JSON
// messages routed by "<entity>.<kind>" and waits for the broker's confirm.
type Publisher struct {
	url      string
	exchange string
	log      *logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(ctx context.Context, url, exchange string, log *logger.Logger) (*Publisher, error) {
	p := &Publisher{url: url, exchange: exchange, log: log}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connectLocked(ctx context.Context) error {
	start := time.Now()
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("rabbitmq declare %s: %w", p.exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("rabbitmq confirm mode: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.log.Info(ctx, "rabbitmq_connected", "connected to RabbitMQ",
		"exchange", p.exchange, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// RoutingKey is "<entity>.<kind>", e.g. "booking.pending_booking".
func RoutingKey(n services.Notification) string {
	return n.Entity + "." + string(n.Kind)
}

func (p *Publisher) publish(ctx context.Context, n services.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() || p.ch == nil || p.ch.IsClosed() {
		p.log.Warn(ctx, "rabbitmq_reconnect", "publish channel closed, reconnecting")
		if err := p.connectLocked(ctx); err != nil {
			return err
		}
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	dc, err := p.ch.PublishWithDeferredConfirmWithContext(pctx, p.exchange, RoutingKey(n), false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    n.ID.String(),
			Timestamp:    n.At,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	ok, err := dc.WaitContext(pctx)
	if err != nil {
		return fmt.Errorf("rabbitmq confirm: %w", err)
	}
	if !ok {
		return errors.New("rabbitmq: broker nacked notification")
	}
	return nil
}

func (p *Publisher) SendConfirmation(ctx context.Context, n services.Notification) error {
	return p.publish(ctx, n)
}

func (p *Publisher) SendStatusUpdate(ctx context.Context, n services.Notification) error {
	return p.publish(ctx, n)
}

func (p *Publisher) SendCancellation(ctx context.Context, n services.Notification) error {
	return p.publish(ctx, n)
}

func (p *Publisher) SendPendingBookingAlert(ctx context.Context, n services.Notification) error {
	return p.publish(ctx, n)
}

func (p *Publisher) SendDriverAssigned(ctx context.Context, n services.Notification) error {
	return p.publish(ctx, n)
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
