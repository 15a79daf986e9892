package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

const defaultPublishTimeout = 2 * time.Second

// Publisher hands booking events to RabbitMQ. The notifier worker turns
// them into SMS.
type Publisher struct {
	conn     *amqp.Connection
	exchange string
	logger   *slog.Logger
	timeout  time.Duration

	mu sync.Mutex
	ch publishChannel

	wg sync.WaitGroup
}

func NewPublisher(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Publisher{conn: conn, ch: ch, exchange: exchange, logger: logger, timeout: defaultPublishTimeout}, nil
}

func (p *Publisher) PublishJSON(ctx context.Context, key, messageID string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         b,
	})
}

// BookingCreated publishes ev under RKBookingCreated on a background
// goroutine. Broker failures are logged, never returned.
func (p *Publisher) BookingCreated(ctx context.Context, ev BookingCreated) error {
	if ev.MessageID == "" {
		ev.MessageID = NewMessageID()
	}

	timeout := p.timeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	ctx = context.WithoutCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := p.PublishJSON(ctx, RKBookingCreated, ev.MessageID, ev); err != nil {
			p.logger.Warn("booking event publish failed",
				"booking_id", ev.BookingID,
				"message_id", ev.MessageID,
				"error", err,
			)
			return
		}

		p.logger.Debug("booking event published", "booking_id", ev.BookingID, "message_id", ev.MessageID)
	}()

	return nil
}

// Wait blocks until every in-flight publish has finished.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

// Close waits for in-flight publishes, then closes the channel and connection.
func (p *Publisher) Close() error {
	p.Wait()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Prefetch int
	Tag      string
	Location *time.Location
}

// Consumer reads booking events from a durable queue and sends one SMS per
// event.
type Consumer struct {
	cfg    ConsumerConfig
	sender Sender
	logger *slog.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(cfg ConsumerConfig, sender Sender, logger *slog.Logger) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 8
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Consumer{cfg: cfg, sender: sender, logger: logger}
}

func (c *Consumer) Connect() error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("rabbit dial failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel failed: %w", err)
	}

	fail := func(what string, err error) error {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("%s failed: %w", what, err)
	}

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}

	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}

	if err := ch.QueueBind(q.Name, RKBookingCreated, c.cfg.Exchange, false, nil); err != nil {
		return fail("bind queue", err)
	}

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fail("set qos", err)
	}

	c.conn = conn
	c.ch = ch

	return nil
}

func (c *Consumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.Tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}

			switch c.handle(ctx, d) {
			case ack:
				_ = d.Ack(false)
			case requeue:
				_ = d.Nack(false, true)
			case drop:
				_ = d.Nack(false, false)
			}
		}
	}
}

type verdict int

const (
	ack verdict = iota
	requeue
	drop
)

// handle sends the SMS for one delivery. A failed send is retried once
// through a redelivery; undecodable payloads are dropped.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) verdict {
	if d.RoutingKey != RKBookingCreated {
		c.logger.Info("skip unknown routing key", "key", d.RoutingKey)
		return ack
	}

	ev, err := decodeBookingCreated(d.Body)
	if err != nil {
		c.logger.Error("drop malformed booking event", "message_id", d.MessageId, "error", err)
		return drop
	}

	if err := c.sender.Send(ctx, Recipient(ev.Phone), SMSBody(ev, c.cfg.Location)); err != nil {
		if d.Redelivered {
			c.logger.Error("booking sms failed after retry", "booking_id", ev.BookingID, "error", err)
			return ack
		}

		c.logger.Warn("booking sms failed, requeue", "booking_id", ev.BookingID, "error", err)
		return requeue
	}

	return ack
}
