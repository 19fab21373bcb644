package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	input := flag.String("input", "", "product JSON file to publish")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if *input == "" {
		fmt.Fprintln(os.Stderr, "-input is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	products, err := loader.LoadFile(*input)
	if err != nil {
		slog.Error("failed to load products", "error", err)
		os.Exit(1)
	}
	events := make([]kafka.Event, len(products))
	for i, p := range products {
		events[i] = kafka.Event{Key: p.ID, Value: p}
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Products)
	defer producer.Close()
	n, err := producer.PublishBatch(ctx, events)
	if err != nil {
		slog.Error("publish failed", "published", n, "error", err)
		os.Exit(1)
	}
	slog.Info("products published", "topic", cfg.Kafka.Topics.Products, "count", n)
}
