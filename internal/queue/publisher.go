package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skillpath/skillpath/internal/events"
)

// Publisher forwards session events from the in-process bus onto the
// session queue so other instances see them.
type Publisher struct {
	conn       *Connection
	bus        *events.Bus
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewPublisher creates a publisher bridging bus events to the queue.
func NewPublisher(conn *Connection, bus *events.Bus) *Publisher {
	return &Publisher{conn: conn, bus: bus}
}

// Start subscribes to the bus and forwards events until the context is
// cancelled or Stop is called.
func (p *Publisher) Start(ctx context.Context) error {
	ctx, p.cancelFunc = context.WithCancel(ctx)

	ch, stop := p.bus.Subscribe()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := p.PublishSessionEvent(ctx, ev); err != nil {
					slog.Error("failed to forward session event",
						"type", ev.Type,
						"error", err,
					)
				}
			}
		}
	}()

	slog.Info("session event publisher started")
	return nil
}

// PublishSessionEvent publishes a single session event to the queue.
func (p *Publisher) PublishSessionEvent(ctx context.Context, ev events.Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, SessionQueueName, ev); err != nil {
		return fmt.Errorf("failed to publish session event: %w", err)
	}

	slog.Debug("published session event",
		"type", ev.Type,
		"user_id", ev.UserID,
		"session_id", ev.SessionID,
	)

	return nil
}

// Stop gracefully stops the publisher.
func (p *Publisher) Stop() {
	if p.cancelFunc != nil {
		p.cancelFunc()
	}
	p.wg.Wait()
}
