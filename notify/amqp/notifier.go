// Package amqp publishes booking notifications to a RabbitMQ topic
// exchange. The routing key is "<tenant>.<kind>", so consumers can bind on
// "*.reservation.*" or "studio-1.#".
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xraph/booking/notify"
)

// DefaultExchange is the exchange used when none is configured.
const DefaultExchange = "booking.events"

// channel is the subset of *amqp.Channel the notifier uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Notifier implements notify.Notifier over an AMQP channel.
type Notifier struct {
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex // amqp channels are not safe for concurrent publishing
	ch channel
}

var _ notify.Notifier = (*Notifier)(nil)

// Dial connects to url and declares a durable topic exchange.
func Dial(url, exchange string) (*Notifier, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("booking/amqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("booking/amqp: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("booking/amqp: declare exchange %s: %w", exchange, err)
	}
	return &Notifier{conn: conn, ch: ch, exchange: exchange}, nil
}

// New wraps an open channel. The caller owns the connection.
func New(ch *amqp.Channel, exchange string) *Notifier {
	return newNotifier(ch, exchange)
}

func newNotifier(ch channel, exchange string) *Notifier {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Notifier{ch: ch, exchange: exchange}
}

// RoutingKey returns the key ev is published under.
func RoutingKey(ev notify.Event) string {
	return ev.TenantID + "." + string(ev.Kind)
}

// Notify implements notify.Notifier. Messages are persistent JSON.
func (n *Notifier) Notify(ctx context.Context, ev notify.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("booking/amqp: encode %s: %w", ev.Kind, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         string(ev.Kind),
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}
	if r := ev.Reservation; r != nil {
		msg.MessageId = string(ev.Kind) + ":" + r.ID.String() + ":" + r.UpdatedAt.Format("20060102T150405.000000000")
	} else if p := ev.Payment; p != nil {
		msg.MessageId = string(ev.Kind) + ":" + p.Provider + ":" + p.ExternalID
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.ch.PublishWithContext(ctx, n.exchange, RoutingKey(ev), false, false, msg); err != nil {
		return fmt.Errorf("booking/amqp: publish %s: %w", ev.Kind, err)
	}
	return nil
}

// Close closes the channel and, for notifiers created by Dial, the
// connection.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
