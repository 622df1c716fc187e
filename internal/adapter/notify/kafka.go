package notify

import (
	"context"
	"fmt"
	"time"

	"contractor-payouts/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	// Notifications are written one at a time on the request path.
	kafkaBatchTimeout = 10 * time.Millisecond
	kafkaWriteTimeout = 5 * time.Second
)

// messageWriter is the subset of *kafka.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes envelopes to a Kafka topic keyed by user id.
type KafkaNotifier struct {
	writer messageWriter
	signer *Signer
	log    zerolog.Logger
}

// NewKafkaNotifier creates a notifier writing to topic on brokers.
func NewKafkaNotifier(brokers []string, topic string, signer *Signer, log zerolog.Logger) *KafkaNotifier {
	return newKafkaNotifier(newKafkaWriter(brokers, topic), signer, log)
}

func newKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              1,
		BatchTimeout:           kafkaBatchTimeout,
		WriteTimeout:           kafkaWriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func newKafkaNotifier(w messageWriter, signer *Signer, log zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{writer: w, signer: signer, log: log}
}

// Notify implements ports.Notifier.
func (n *KafkaNotifier) Notify(ctx context.Context, msg domain.Notification) error {
	env, err := n.signer.Seal(msg)
	if err != nil {
		return err
	}

	headers := make([]kafka.Header, 0, len(env.Headers))
	for k, v := range env.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := n.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(env.Key),
		Value:   env.Body,
		Headers: headers,
	}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}

	n.log.Debug().
		Str("event", string(msg.Event)).
		Str("notification_id", msg.ID.String()).
		Msg("notification published to kafka")
	return nil
}

// Close flushes and closes the writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
