package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/htmlrunner/htmlrunner/pkg/runner"
)

const (
	MessageTypeTestCompleted = "test.completed"

	DefaultPublishTimeout = 10 * time.Second
)

// Message is the envelope published for every test.
type Message struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	Payload   *TestOutcome `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

// Channel is the part of an AMQP channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher is a sink that publishes each outcome as a JSON message.
// AddTest carries no context, so every publish is bounded by the context
// the publisher was created with and by its timeout. Publishing errors
// cannot be returned from AddTest; they are logged and reported by Err.
type Publisher struct {
	ctx        context.Context
	ch         Channel
	exchange   string
	routingKey string
	meta       Meta
	timeout    time.Duration
	logger     *slog.Logger

	mu   sync.Mutex
	errs []error

	closers []func() error
}

var _ runner.Results = &Publisher{}

// NewPublisher returns a publisher on ch. Cancelling ctx aborts in-flight
// and later publishes.
func NewPublisher(ctx context.Context, ch Channel, exchange, routingKey string, meta Meta, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		ctx:        ctx,
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		meta:       meta,
		timeout:    DefaultPublishTimeout,
		logger:     logger,
	}
}

// Dial connects to the broker, declares exchange as a durable topic
// exchange and returns a publisher on it. Close releases the connection.
func Dial(ctx context.Context, url, exchange, routingKey string, meta Meta, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	p := NewPublisher(ctx, ch, exchange, routingKey, meta, logger)
	p.closers = []func() error{ch.Close, conn.Close}
	return p, nil
}

func (p *Publisher) AddTest(rawSource string, stepResults []runner.StepResult) {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	if err := p.Publish(ctx, NewOutcome(p.meta, rawSource, stepResults)); err != nil {
		p.logger.Error("failed to publish test outcome", "error", err)

		p.mu.Lock()
		p.errs = append(p.errs, err)
		p.mu.Unlock()
	}
}

func (p *Publisher) Publish(ctx context.Context, outcome *TestOutcome) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeTestCompleted,
		Payload:   outcome,
		Timestamp: time.Now(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = p.ch.PublishWithContext(
		ctx,
		p.exchange,
		p.routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Timestamp:    msg.Timestamp,
			Type:         msg.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", p.exchange, p.routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", p.exchange,
		"routing_key", p.routingKey,
		"message_id", msg.ID,
		"run_id", outcome.RunID,
	)

	return nil
}

// Err returns every publishing error seen so far.
func (p *Publisher) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}

func (p *Publisher) Close() error {
	var err error
	for _, c := range p.closers {
		err = errors.Join(err, c())
	}
	p.closers = nil
	return err
}
