package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Priya8975/webhook-gateway/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// KafkaConfig configures the Kafka mirror sink.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// KafkaSink publishes every appended entry to a topic. It cannot read back,
// so it is only usable as a Mirror sink.
type KafkaSink struct {
	writer *kafka.Writer
	logger *slog.Logger
}

var _ Sink = (*KafkaSink)(nil)

func NewKafkaSink(cfg KafkaConfig, logger *slog.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka sink configuration incomplete: both brokers and topic are required")
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 10 * time.Millisecond
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 5 * time.Second
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: batchTimeout,
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireOne,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf("kafka writer: "+msg, args...))
		}),
	}

	logger.Info("kafka sink created", "brokers", cfg.Brokers, "topic", cfg.Topic)

	return &KafkaSink{writer: w, logger: logger}, nil
}

func (k *KafkaSink) Name() string {
	return "kafka:" + k.writer.Topic
}

func (k *KafkaSink) Append(ctx context.Context, entry domain.LogEntry) error {
	value, err := encodeCompact(entry)
	if err != nil {
		return fmt.Errorf("encoding log entry: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(uuid.NewString()),
		Value: value,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to kafka: %w", err)
	}
	return nil
}

// Close flushes pending messages.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
