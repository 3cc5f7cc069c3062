package queue

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/interfaces"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/logging"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// MessageReader is the slice of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConsumer struct {
	Reader  MessageReader
	Handler interfaces.ConsumerHandler
	log     logging.Logger
}

func NewKafkaConsumer(broker, topic, groupID, username, password string, handler interfaces.ConsumerHandler, log logging.Logger) *KafkaConsumer {
	cfg := kafka.ReaderConfig{
		Brokers:  []string{broker},
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, //10MB
		MaxWait:  2 * time.Second,
	}
	if username != "" {
		cfg.Dialer = &kafka.Dialer{
			Timeout:       10 * time.Second,
			DualStack:     true,
			SASLMechanism: plain.Mechanism{Username: username, Password: password},
			TLS:           &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}

	return &KafkaConsumer{
		Reader:  kafka.NewReader(cfg),
		Handler: handler,
		log:     log,
	}
}

// Listen processes messages until ctx is cancelled. A message is committed
// after the handler returns, whatever the outcome; failed deliveries are
// tracked on the notification record instead of being redelivered.
func (kc *KafkaConsumer) Listen(ctx context.Context) error {
	for {
		msg, err := kc.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			kc.log.Error(ctx, "kafka fetch failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		kc.log.Debug(ctx, "kafka message received", "key", string(msg.Key), "offset", msg.Offset)

		if err := kc.Handler.HandleMessage(ctx, msg.Key, msg.Value); err != nil {
			kc.log.Error(ctx, "kafka handler failed", "key", string(msg.Key), "error", err)
		}
		if err := kc.Reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			kc.log.Error(ctx, "kafka commit failed", "error", err)
		}
	}
}

func (kc *KafkaConsumer) Close() error {
	return kc.Reader.Close()
}
