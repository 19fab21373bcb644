package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	input := flag.String("input", "", "product JSON file; empty consumes the Kafka products topic")
	dataDir := flag.String("data", "", "index directory (overrides indexer.dataDir)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Indexer.DataDir = *dataDir
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *input); err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, input string) error {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		srv, err := metrics.StartServer(fmt.Sprintf(":%d", cfg.Metrics.Port), nil)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	docs, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}
	defer docs.Close()
	if cfg.Store.Driver == "memory" {
		slog.Warn("memory document store: stored fields will not outlive this process")
	}

	// The build stays in memory until it is committed; the configured
	// store and the previous segment files are only replaced afterwards.
	staged := store.NewMemory()
	engine := indexer.NewEngine(cfg.Indexer, indexer.WithStore(staged), indexer.WithMetrics(m))
	start := time.Now()

	if input != "" {
		products, err := loader.LoadFile(input)
		if err != nil {
			return err
		}
		slog.Info("products loaded", "file", input, "products", len(products))
		if err := engine.IndexProducts(ctx, products); err != nil {
			return err
		}
	} else {
		slog.Info("consuming products from kafka",
			"topic", cfg.Kafka.Topics.Products,
			"group", cfg.Kafka.ConsumerGroup,
		)
		n, err := loader.ConsumeProducts(ctx, cfg.Kafka, func(ctx context.Context, p document.Product) error {
			_, err := engine.IndexProduct(ctx, p)
			return err
		})
		if err != nil {
			return err
		}
		slog.Info("kafka drained", "messages", n)
	}

	snap, err := engine.Commit()
	if err != nil {
		return err
	}
	files, err := indexer.Install(ctx, snap, staged, docs, cfg.Indexer.DataDir)
	if err != nil {
		return err
	}
	if cfg.Redis.Enabled {
		if err := invalidateCache(ctx, cfg); err != nil {
			return err
		}
	}
	slog.Info("index built",
		"dir", cfg.Indexer.DataDir,
		"segments", len(files),
		"docs", snap.MaxDoc(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// invalidateCache drops the cached results of the previous build. Searches
// cache under the index directory as namespace.
func invalidateCache(ctx context.Context, cfg *config.Config) error {
	client, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to result cache: %w", err)
	}
	defer client.Close()
	return cache.New(client, cfg.Redis.CacheTTL, cache.WithNamespace(cfg.Indexer.DataDir)).Invalidate(ctx)
}
