package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// OrdersExchange carries full order snapshots to every connected display.
const OrdersExchange = "orders_fanout"

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	acks <-chan amqp.Confirmation // publisher confirms
	mu   sync.Mutex               // сериализуем Publish при использовании confirms
}

func Dial(host string, port int, user, pass string) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/", user, pass, host, port)
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return &Client{conn: conn, ch: ch, acks: acks}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

func (c *Client) DeclareOrdersExchange() error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("nil channel")
	}
	return c.ch.ExchangeDeclare(OrdersExchange, "fanout", true, false, false, false, nil)
}

// DeclareDisplayQueue binds a per-display queue to the fanout exchange.
// An empty name asks the broker for a generated one; the queue is exclusive
// and auto-deleted, a display has no use for history from before it opened.
func (c *Client) DeclareDisplayQueue(name string) (string, error) {
	if err := c.DeclareOrdersExchange(); err != nil {
		return "", err
	}
	q, err := c.ch.QueueDeclare(name, false, true, true, false, nil)
	if err != nil {
		return "", err
	}
	if err := c.ch.QueueBind(q.Name, "", OrdersExchange, false, nil); err != nil {
		return "", err
	}
	return q.Name, nil
}

// PublishOrderEvent publishes a snapshot and waits for the broker ack.
// Не вызывать горутинно одновременно (сериализуется mutex-ом).
func (c *Client) PublishOrderEvent(ctx context.Context, eventID, orderID string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pub := amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     eventID,
		CorrelationId: orderID,
		Timestamp:     time.Now().UTC(),
		Headers:       amqp.Table{"x-source": "order-service"},
		Body:          body,
	}
	if err := c.ch.PublishWithContext(ctx, OrdersExchange, "", false, false, pub); err != nil {
		return err
	}

	select {
	case conf := <-c.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("publish NACK from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}
	return c.ch.Consume(queue, consumer, false, false, false, false, nil)
}
