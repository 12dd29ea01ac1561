package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/skillpath/skillpath/internal/events"
)

// EventHandler handles a session event received from the queue.
type EventHandler func(ev events.Event)

// Consumer consumes session events from the queue and republishes them
// on the local bus.
type Consumer struct {
	conn       *Connection
	handler    EventHandler
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewConsumer creates a consumer feeding the given bus. Events published
// by this process come back around through the queue, so the bus must
// tolerate duplicates.
func NewConsumer(conn *Connection, bus *events.Bus) *Consumer {
	return &Consumer{conn: conn, handler: bus.Publish}
}

// NewConsumerFunc creates a consumer with an arbitrary handler.
func NewConsumerFunc(conn *Connection, handler EventHandler) *Consumer {
	return &Consumer{conn: conn, handler: handler}
}

// Start begins consuming session events.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()

	msgs, err := ch.Consume(
		SessionQueueName,
		"",    // consumer tag (auto-generated)
		true,  // auto-ack (session events are fire-and-forget)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	slog.Info("session event consumer started")

	c.wg.Add(1)
	go c.consume(ctx, msgs)

	return nil
}

func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			ev, err := decodeEvent(msg.Body)
			if err != nil {
				slog.Error("failed to unmarshal session event", "error", err)
				continue
			}

			c.handler(ev)
		}
	}
}

// decodeEvent parses a session event off the wire.
func decodeEvent(body []byte) (events.Event, error) {
	var ev events.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return events.Event{}, err
	}
	if ev.Type == "" {
		return events.Event{}, fmt.Errorf("session event missing type")
	}
	return ev, nil
}

// Stop gracefully stops the consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	slog.Info("consumer stopped")
}
