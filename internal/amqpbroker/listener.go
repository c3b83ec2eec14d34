package amqpbroker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dev-kitchen/api-gateway/internal/wire"
)

// Listener is the Reply Listener (spec §4.2): it owns the gateway's
// instance-unique reply queue, decodes each delivery into a
// wire.ResponseEnvelope, and hands it to the Correlation Registry.
type Listener struct {
	broker    *Broker
	queueName string
	workers   int
	onReply   func(correlationID string, env wire.ResponseEnvelope)
	onError   func(err error)
}

// NewListener declares queueName (non-durable, auto-delete, exclusive to
// this instance per spec §9) bound to the services exchange under
// routingKey, and prepares workers concurrent delivery handlers.
func NewListener(broker *Broker, queueName, routingKey string, workers int, onReply func(string, wire.ResponseEnvelope), onError func(error)) (*Listener, error) {
	ch, err := broker.Connection().Channel()
	if err != nil {
		return nil, fmt.Errorf("amqpbroker: open listener declare channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(queueName, false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("amqpbroker: declare reply queue %s: %w", queueName, err)
	}

	if err := ch.QueueBind(q.Name, routingKey, broker.exchange, false, nil); err != nil {
		return nil, fmt.Errorf("amqpbroker: bind reply queue %s: %w", queueName, err)
	}

	if workers <= 0 {
		workers = 1
	}

	return &Listener{
		broker:    broker,
		queueName: q.Name,
		workers:   workers,
		onReply:   onReply,
		onError:   onError,
	}, nil
}

// QueueName returns the declared reply queue's server-assigned name.
func (l *Listener) QueueName() string { return l.queueName }

// Run consumes deliveries until ctx is cancelled, fanning out to
// l.workers goroutines. Every delivery is acked unconditionally (spec
// §4.2: a malformed reply is logged and dropped, never requeued, since a
// requeue would only redeliver the same unparsable message forever).
func (l *Listener) Run(ctx context.Context) error {
	ch, err := l.broker.Connection().Channel()
	if err != nil {
		return fmt.Errorf("amqpbroker: open listener consume channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(l.workers*2, 0, false); err != nil {
		return fmt.Errorf("amqpbroker: set qos: %w", err)
	}

	deliveries, err := ch.Consume(l.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqpbroker: consume %s: %w", l.queueName, err)
	}

	done := make(chan struct{})
	for i := 0; i < l.workers; i++ {
		go l.worker(deliveries, done)
	}

	<-ctx.Done()
	close(done)
	return ctx.Err()
}

func (l *Listener) worker(deliveries <-chan amqp.Delivery, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			l.handle(d)
		}
	}
}

func (l *Listener) handle(d amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			l.reportError(fmt.Errorf("amqpbroker: recovered panic handling delivery: %v", r))
		}
		_ = d.Ack(false)
	}()

	correlationID := d.CorrelationId
	if correlationID == "" {
		correlationID, _ = d.Headers["correlationId"].(string)
	}
	if correlationID == "" {
		l.reportError(fmt.Errorf("amqpbroker: delivery missing correlation id"))
		return
	}

	var env wire.ResponseEnvelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		l.reportError(fmt.Errorf("amqpbroker: malformed reply for %s: %w", correlationID, err))
		return
	}
	if env.CorrelationID == "" {
		env.CorrelationID = correlationID
	}

	l.onReply(correlationID, env)
}

func (l *Listener) reportError(err error) {
	if l.onError != nil {
		l.onError(err)
	}
}
