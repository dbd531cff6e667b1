// Package events publishes ledger events to RabbitMQ after a unit of work has
// committed. Events are informational: the notification rows written inside the
// transaction remain the system of record, so publish failures are reported
// to the caller but never undo a committed operation.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

const (
	RoutingKeyTransferCompleted = "ledger.transfer.completed"
	RoutingKeyMintCompleted     = "ledger.mint.completed"
)

type TransferCompleted struct {
	Reference         uuid.UUID       `json:"reference"`
	FromAccountNumber string          `json:"from_account_number"`
	ToAccountNumber   string          `json:"to_account_number"`
	FromUserID        int64           `json:"from_user_id"`
	ToUserID          int64           `json:"to_user_id"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	Timestamp         time.Time       `json:"timestamp"`
}

type MintCompleted struct {
	Reference     uuid.UUID       `json:"reference"`
	AccountNumber string          `json:"account_number"`
	UserID        int64           `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Publisher is the interface implemented by types that can publish ledger events.
type Publisher interface {
	PublishTransferCompleted(ctx context.Context, event TransferCompleted) error
	PublishMintCompleted(ctx context.Context, event MintCompleted) error
	Close()
}

// NoopPublisher is used when no broker is configured or it was unreachable at
// start-up.
type NoopPublisher struct {
	Logger *slog.Logger
}

func (p *NoopPublisher) PublishTransferCompleted(_ context.Context, event TransferCompleted) error {
	p.skipped(RoutingKeyTransferCompleted, event.Reference)
	return nil
}

func (p *NoopPublisher) PublishMintCompleted(_ context.Context, event MintCompleted) error {
	p.skipped(RoutingKeyMintCompleted, event.Reference)
	return nil
}

func (p *NoopPublisher) Close() {}

func (p *NoopPublisher) skipped(routingKey string, reference uuid.UUID) {
	if p.Logger != nil {
		p.Logger.Debug("event publish skipped", "routing_key", routingKey, "reference", reference.String())
	}
}

// AMQPPublisher holds the RabbitMQ connection and channel for publishing messages.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   *slog.Logger
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewAMQPPublisher dials the broker and declares a durable topic exchange.
func NewAMQPPublisher(amqpURL, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	p := &AMQPPublisher{conn: conn, exchange: exchange, logger: logger}
	if err := p.openChannel(); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,        // args
	); err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}
	p.channel = ch
	return nil
}

func (p *AMQPPublisher) PublishTransferCompleted(ctx context.Context, event TransferCompleted) error {
	return p.publish(ctx, RoutingKeyTransferCompleted, event.Reference, event)
}

func (p *AMQPPublisher) PublishMintCompleted(ctx context.Context, event MintCompleted) error {
	return p.publish(ctx, RoutingKeyMintCompleted, event.Reference, event)
}

func (p *AMQPPublisher) publish(ctx context.Context, routingKey string, reference uuid.UUID, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", routingKey, err)
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    reference.String(),
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
	if err == nil {
		return nil
	}

	// One-shot retry on a fresh channel
	p.logger.Warn("publish failed; reopening channel",
		"routing_key", routingKey,
		"error", err.Error(),
	)
	if chErr := p.openChannel(); chErr != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, chErr)
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

// Close gracefully closes the channel and connection to RabbitMQ.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
