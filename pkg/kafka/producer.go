package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/config"
)

// Event is the unit of data published to Kafka. Key is used for partition
// hashing, so events sharing a key keep their publish order. Value is
// JSON-serialised.
type Event struct {
	Key   string
	Value any
}

// Producer publishes JSON-encoded events to a Kafka topic.
type Producer struct {
	writer    *kafka.Writer
	logger    *slog.Logger
	batchSize int
}

// NewProducer creates a Producer for the given topic.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	const batchSize = 100
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              batchSize,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Producer{
		writer:    w,
		logger:    slog.Default().With("component", "kafka-producer", "topic", topic),
		batchSize: batchSize,
	}
}

// Messages encodes events into Kafka messages.
func Messages(events []Event) ([]kafka.Message, error) {
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event.Value)
		if err != nil {
			return nil, fmt.Errorf("marshaling event %q: %w", event.Key, err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(event.Key),
			Value: value,
		})
	}
	return messages, nil
}

// PublishBatch writes events synchronously in chunks of the writer's batch
// size and returns the number written before any failure.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) (int, error) {
	messages, err := Messages(events)
	if err != nil {
		return 0, err
	}
	written := 0
	for start := 0; start < len(messages); start += p.batchSize {
		end := min(start+p.batchSize, len(messages))
		if err := p.writer.WriteMessages(ctx, messages[start:end]...); err != nil {
			p.logger.Error("failed to publish batch",
				"offset", start,
				"count", end-start,
				"error", err,
			)
			return written, fmt.Errorf("publishing batch to kafka: %w", err)
		}
		written = end
		p.logger.Debug("batch published", "count", end-start, "total", written)
	}
	return written, nil
}

// Close flushes pending writes and closes the underlying Kafka writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
