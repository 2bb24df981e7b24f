package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	"github.com/elskow/authflow/internal/config"
)

func saslMechanism(cfg config.KafkaConfig) sasl.Mechanism {
	if cfg.Username == "" {
		return nil
	}
	return plain.Mechanism{
		Username: cfg.Username,
		Password: cfg.Password,
	}
}

func tlsConfig(cfg config.KafkaConfig) *tls.Config {
	if !cfg.TLS {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// KafkaDispatcher publishes messages to a topic, keyed by recipient so one
// user's emails stay ordered within a partition.
type KafkaDispatcher struct {
	writer *kafka.Writer
}

func NewKafkaDispatcher(cfg config.KafkaConfig) *KafkaDispatcher {
	return &KafkaDispatcher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: 10 * time.Second,
			Transport: &kafka.Transport{
				SASL: saslMechanism(cfg),
				TLS:  tlsConfig(cfg),
			},
		},
	}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: body,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "template", Value: []byte(msg.Template)},
		},
	})
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

// KafkaConsumer reads published messages and delivers them with a Sender.
type KafkaConsumer struct {
	reader *kafka.Reader
	sender Sender
	log    *zap.Logger
}

func NewKafkaConsumer(cfg config.KafkaConfig, sender Sender, log *zap.Logger) *KafkaConsumer {
	dialer := &kafka.Dialer{
		Timeout:       10 * time.Second,
		DualStack:     true,
		TLS:           tlsConfig(cfg),
		SASLMechanism: saslMechanism(cfg),
	}

	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    cfg.Topic,
			MinBytes: 1,
			MaxBytes: 10e6,
			Dialer:   dialer,
		}),
		sender: sender,
		log:    log,
	}
}

// Run blocks until ctx is cancelled. Offsets are committed after delivery
// is attempted; a failed delivery is logged and skipped.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			c.log.Error("kafka fetch failed", zap.Error(err))
			return err
		}

		if err := c.Handle(ctx, m.Value); err != nil {
			c.log.Error("notification delivery failed",
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.log.Error("kafka commit failed", zap.Error(err))
		}
	}
}

func (c *KafkaConsumer) Handle(ctx context.Context, value []byte) error {
	var msg Message
	if err := json.Unmarshal(value, &msg); err != nil {
		return err
	}
	return c.sender.Send(ctx, msg)
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
