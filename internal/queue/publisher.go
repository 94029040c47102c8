package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/hybrid-auth/internal/logging"
)

// Publisher emits audit events.  Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev AuthEvent) error
}

// NoopPublisher drops every event.  Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, AuthEvent) error { return nil }

// AMQPPublisher publishes events as persistent JSON messages to a durable
// queue on the default exchange.  The connection is dialed lazily and
// re-dialed after a failure.
type AMQPPublisher struct {
	url   string
	queue string
	log   logging.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url, queue string, log logging.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: queue, log: log}
}

// Publish sends ev.  On error the cached channel is discarded so the next
// call reconnects.
func (p *AMQPPublisher) Publish(ctx context.Context, ev AuthEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Type),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.reset()
		p.log.Warn(ctx, "audit publish failed", "err", err, "type", ev.Type)
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Async wraps a Publisher so that Publish never blocks the caller.  Events
// are buffered and dropped (with a warning) when the buffer is full.
type Async struct {
	next Publisher
	log  logging.Logger
	buf  chan AuthEvent
	wg   sync.WaitGroup
}

func NewAsync(next Publisher, size int, log logging.Logger) *Async {
	if size < 1 {
		size = 1
	}
	a := &Async{next: next, log: log, buf: make(chan AuthEvent, size)}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *Async) Publish(ctx context.Context, ev AuthEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	select {
	case a.buf <- ev:
	default:
		a.log.Warn(ctx, "audit buffer full, dropping event", "type", ev.Type)
	}
	return nil
}

// Close stops accepting events and waits for buffered ones to be sent.
func (a *Async) Close() {
	close(a.buf)
	a.wg.Wait()
}

func (a *Async) loop() {
	defer a.wg.Done()
	for ev := range a.buf {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.next.Publish(ctx, ev); err != nil {
			a.log.Warn(ctx, "audit event lost", "type", ev.Type, "err", err)
		}
		cancel()
	}
}
