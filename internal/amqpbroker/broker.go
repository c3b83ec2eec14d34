// Package amqpbroker is the gateway's only dependency on the message
// broker: connecting, declaring the services exchange and the gateway's
// own reply queue, publishing requests, and consuming replies. The
// exchange/queue/bind/consume shape is grounded on the rabbitmq/amqp091-go
// consumer in the retrieval pack's baechuer real-time-ressys join service;
// the connection lifecycle (dial once, pool channels for publish) follows
// cellorg's own discipline of a single long-lived connection guarding
// per-call resources with explicit Close paths (cellorg's broker service).
package amqpbroker

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker owns one AMQP connection, the services exchange, and a small pool
// of publish channels (amqp091-go channels are not safe for concurrent use,
// so the pool hands a caller exclusive access for the duration of Publish).
type Broker struct {
	conn     *amqp.Connection
	exchange string

	chanPool chan *amqp.Channel
}

// Dial connects to url, declares exchange as a durable direct exchange, and
// fills a pool of poolSize publish channels.
func Dial(url, exchange string, poolSize int) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqpbroker: dial: %w", err)
	}

	declareCh, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqpbroker: open declare channel: %w", err)
	}
	defer declareCh.Close()

	if err := declareCh.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqpbroker: declare exchange %s: %w", exchange, err)
	}

	if poolSize <= 0 {
		poolSize = 1
	}
	pool := make(chan *amqp.Channel, poolSize)
	for i := 0; i < poolSize; i++ {
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("amqpbroker: open publish channel %d: %w", i, err)
		}
		pool <- ch
	}

	return &Broker{conn: conn, exchange: exchange, chanPool: pool}, nil
}

// Close releases every pooled channel and the underlying connection.
func (b *Broker) Close() error {
	close(b.chanPool)
	for ch := range b.chanPool {
		_ = ch.Close()
	}
	return b.conn.Close()
}

// Connection exposes the underlying connection so the Reply Listener can
// open its own dedicated consume channel.
func (b *Broker) Connection() *amqp.Connection {
	return b.conn
}

// PublishRequest routes body to routingKey on the services exchange,
// stamping correlationID and replyTo as AMQP message properties per spec
// §4.3 step 4 (they travel out-of-band, not embedded in the JSON body).
func (b *Broker) PublishRequest(ctx context.Context, routingKey, correlationID, replyTo string, body []byte) error {
	ch, err := b.borrow(ctx)
	if err != nil {
		return err
	}
	defer func() { b.chanPool <- ch }()

	return ch.PublishWithContext(ctx, b.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Transient,
		CorrelationId: correlationID,
		ReplyTo:       replyTo,
		Body:          body,
	})
}

func (b *Broker) borrow(ctx context.Context) (*amqp.Channel, error) {
	select {
	case ch := <-b.chanPool:
		return ch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
