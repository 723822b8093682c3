package message_broaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// consumeBuffer bounds how many deliveries Consume holds before the reader
// catches up.
const consumeBuffer = 256

// Topology names the exchange an event is published to and the queue that
// receives the events matching BindingKey.
type Topology struct {
	Exchange   string
	Queue      string
	BindingKey string
}

// RabbitMQ publishes events to a durable topic exchange. Routing keys are the
// event types, so a binding like "import.*" selects one family of events.
type RabbitMQ struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	topology Topology
	now      func() time.Time
}

func NewRabbitMQ(url, exchange, queue, bindingKey string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	topology := Topology{Exchange: exchange, Queue: queue, BindingKey: bindingKey}
	if err := declare(ch, topology); err != nil {
		return nil, errors.Join(err, ch.Close(), conn.Close())
	}
	return &RabbitMQ{conn: conn, channel: ch, topology: topology, now: time.Now}, nil
}

func declare(ch *amqp.Channel, t Topology) error {
	if err := ch.ExchangeDeclare(t.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", t.Exchange, err)
	}
	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", t.Queue, err)
	}
	if err := ch.QueueBind(t.Queue, t.BindingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s with %q: %w", t.Queue, t.Exchange, t.BindingKey, err)
	}
	return nil
}

func (r *RabbitMQ) Publish(ctx context.Context, routingKey string, message []byte) error {
	return r.channel.PublishWithContext(ctx, r.topology.Exchange, routingKey, false, false, persistentJSON(message, r.now()))
}

func persistentJSON(body []byte, at time.Time) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    at.UTC(),
		Body:         body,
	}
}

// Consume streams message bodies from queue until ctx is done or the channel
// closes. An empty queue name reads the queue declared at construction.
// Deliveries are acknowledged once the reader has taken them.
func (r *RabbitMQ) Consume(ctx context.Context, queue string) (<-chan []byte, error) {
	if queue == "" {
		queue = r.topology.Queue
	}
	deliveries, err := r.channel.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}

	out := make(chan []byte, consumeBuffer)
	go func() {
		defer close(out)
		for {
			var d amqp.Delivery
			var ok bool
			select {
			case <-ctx.Done():
				return
			case d, ok = <-deliveries:
				if !ok {
					return
				}
			}
			select {
			case out <- d.Body:
				_ = d.Ack(false)
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return
			}
		}
	}()
	return out, nil
}

func (r *RabbitMQ) Close() error {
	return errors.Join(r.channel.Close(), r.conn.Close())
}
