// Package broker is the RabbitMQ transport for outbox events. Events go to one
// durable topic exchange; the routing key is the logical topic the event
// registry resolved.
package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

var (
	errURLRequired      = errors.New("rabbitmq url is required")
	errExchangeRequired = errors.New("rabbitmq exchange is required")
	errClosed           = errors.New("rabbitmq connection closed")
	// ErrNacked means the broker refused the message.
	ErrNacked = errors.New("rabbitmq nacked publish")
)

// Message is one outbox row as it goes on the wire.
type Message struct {
	RoutingKey string
	MessageID  string
	Body       []byte
	Headers    map[string]string
	Timestamp  time.Time
}

type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Confirm(noWait bool) error
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	Close() error
}

type Client struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	mu       sync.Mutex
}

// Dial connects, declares the exchange and puts the channel in confirm mode.
func Dial(ctx context.Context, cfg config.BrokerConfig, logg *logger.Logger) (*Client, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errURLRequired
	}
	exchange := strings.TrimSpace(cfg.Exchange)
	if exchange == "" {
		return nil, errExchangeRequired
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	client, err := newClient(ch, exchange)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	client.conn = conn

	if logg != nil {
		logg.Info(logg.WithField(ctx, "exchange", exchange), "rabbitmq client initialized")
	}
	return client, nil
}

func newClient(ch channel, exchange string) (*Client, error) {
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	return &Client{ch: ch, exchange: exchange}, nil
}

// Publish sends a persistent message and waits for the broker confirm.
func (c *Client) Publish(ctx context.Context, msg Message) error {
	if c == nil || c.ch == nil {
		return errClosed
	}
	if strings.TrimSpace(msg.RoutingKey) == "" {
		return errors.New("routing key is required")
	}

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	// amqp channels are not safe for concurrent publishes.
	c.mu.Lock()
	confirm, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, c.exchange, msg.RoutingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    msg.MessageID,
		Timestamp:    ts,
		Headers:      headers,
		Body:         msg.Body,
	})
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.RoutingKey, err)
	}
	if confirm == nil {
		return nil
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return ErrNacked
	}
	return nil
}

// Ping fails once the underlying connection has been closed.
func (c *Client) Ping(context.Context) error {
	if c == nil || c.ch == nil {
		return errClosed
	}
	if c.conn != nil && c.conn.IsClosed() {
		return errClosed
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.ch != nil {
		if err := c.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
