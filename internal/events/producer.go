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
)

const publishTimeout = 5 * time.Second

// AMQPPublisher publishes ledger events to a durable topic exchange. The
// event type doubles as the routing key.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

func NewAMQPPublisher(rawURL, exchange string) (*AMQPPublisher, error) {
	cleanURL, err := sanitizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	p := &AMQPPublisher{conn: conn, exchange: exchange}
	if err := p.openChannel(); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	p.channel = ch
	return nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event LedgerEvent) error {
	msg, err := publishing(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg)
	if err == nil {
		return nil
	}
	// one reopen attempt when the broker closed the channel under us
	if p.channel.IsClosed() && !p.conn.IsClosed() {
		slog.WarnContext(ctx, "reopening AMQP channel", "exchange", p.exchange, "error", err)
		if reopenErr := p.openChannel(); reopenErr != nil {
			return errors.Join(err, reopenErr)
		}
		return p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg)
	}
	return fmt.Errorf("publish %s: %w", event.Type, err)
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func publishing(event LedgerEvent) (amqp091.Publishing, error) {
	if event.Type == "" {
		return amqp091.Publishing{}, errors.New("event type is required")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    ts,
		Type:         event.Type,
		Headers:      amqp091.Table{"user_id": event.UserID},
		Body:         body,
	}, nil
}

func sanitizeURL(raw string) (string, error) {
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

// FallbackPublisher drops events. It stands in when no broker is configured
// or the broker was unreachable at startup.
type FallbackPublisher struct {
	Logger *slog.Logger
}

func (p FallbackPublisher) Publish(ctx context.Context, event LedgerEvent) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.DebugContext(ctx, "event publish skipped", "type", event.Type, "user_id", event.UserID)
	return nil
}

func (FallbackPublisher) Close() error { return nil }

// Connect returns an AMQP publisher, or the fallback when url is empty or
// the broker cannot be reached.
func Connect(logger *slog.Logger, rawURL, exchange string) Publisher {
	if strings.TrimSpace(rawURL) == "" {
		logger.Info("no RABBITMQ_URL configured, ledger events disabled")
		return FallbackPublisher{Logger: logger}
	}
	p, err := NewAMQPPublisher(rawURL, exchange)
	if err != nil {
		logger.Warn("rabbitmq unavailable, ledger events disabled", "error", err)
		return FallbackPublisher{Logger: logger}
	}
	logger.Info("ledger events enabled", "exchange", exchange)
	return p
}
