package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"contractor-payouts/internal/core/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// publisher is the subset of *amqp.Channel the notifier uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier publishes envelopes to a durable topic exchange. The routing
// key is the event name, so consumers can bind to "payout.*".
type AMQPNotifier struct {
	conn     *amqp.Connection
	channel  publisher
	exchange string
	signer   *Signer
	log      zerolog.Logger
}

// NewAMQPNotifier dials rawURL and declares exchange.
func NewAMQPNotifier(rawURL, exchange string, signer *Signer, log zerolog.Logger) (*AMQPNotifier, error) {
	cleanURL, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Properties: amqp.Table{"connection_name": "contractor-payouts"}})
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	n := newAMQPNotifier(ch, exchange, signer, log)
	n.conn = conn
	return n, nil
}

func newAMQPNotifier(ch publisher, exchange string, signer *Signer, log zerolog.Logger) *AMQPNotifier {
	return &AMQPNotifier{channel: ch, exchange: exchange, signer: signer, log: log}
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("parse amqp url: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// Notify implements ports.Notifier.
func (n *AMQPNotifier) Notify(ctx context.Context, msg domain.Notification) error {
	env, err := n.signer.Seal(msg)
	if err != nil {
		return err
	}

	headers := amqp.Table{}
	for k, v := range env.Headers {
		headers[k] = v
	}

	err = n.channel.PublishWithContext(ctx, n.exchange, string(msg.Event), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID.String(),
		Timestamp:    msg.OccurredAt,
		Headers:      headers,
		Body:         env.Body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}

	n.log.Debug().
		Str("event", string(msg.Event)).
		Str("exchange", n.exchange).
		Msg("notification published to amqp")
	return nil
}

// Close closes the channel and the connection.
func (n *AMQPNotifier) Close() error {
	err := n.channel.Close()
	if n.conn != nil {
		if cerr := n.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
