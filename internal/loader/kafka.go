package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/kafka"
)

// ProductHandler receives each product decoded from the stream.
type ProductHandler func(ctx context.Context, p document.Product) error

// HandleProducts adapts a ProductHandler to a Kafka MessageHandler. Messages
// that are not valid products are logged and skipped; handler errors stop
// the consumer.
func HandleProducts(fn ProductHandler) kafka.MessageHandler {
	logger := slog.Default().With("component", "product-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		p, err := kafka.DecodeJSON[document.Product](value)
		if err == nil {
			err = Check(p)
		}
		if err != nil {
			logger.Error("skipping malformed product message",
				"key", string(key),
				"error", err,
			)
			return nil
		}
		if err := fn(ctx, p); err != nil {
			return fmt.Errorf("handling product %s: %w", p.ID, err)
		}
		return nil
	}
}

// ConsumeProducts drains the configured products topic into fn and returns
// the number of messages consumed.
func ConsumeProducts(ctx context.Context, cfg config.KafkaConfig, fn ProductHandler) (int, error) {
	consumer := kafka.NewConsumer(cfg, cfg.Topics.Products, HandleProducts(fn))
	defer consumer.Close()
	n, err := consumer.Drain(ctx)
	if err != nil {
		return n, fmt.Errorf("consuming %s: %w", cfg.Topics.Products, err)
	}
	return n, nil
}
