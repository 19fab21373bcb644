package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/nested-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	dataDir := flag.String("data", "", "index directory (overrides indexer.dataDir)")
	q := flag.String("q", "", `query, e.g. 'color:black AND size:XL'`)
	field := flag.String("field", "description", "field searched by terms without a prefix")
	limit := flag.Int("limit", -1, "maximum hits; 0 returns every hit (default search.defaultLimit)")
	plugin := flag.String("plugin", "", "wrap the query with a scoring plug-in: even or random")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Indexer.DataDir = *dataDir
	}
	if *limit < 0 {
		*limit = cfg.Search.DefaultLimit
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *q, *field, *plugin, *limit); err != nil {
		slog.Error("search failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, input, field, plugin string, limit int) error {
	snap, err := indexer.Open(cfg.Indexer.DataDir)
	if err != nil {
		return err
	}
	sim, err := ranker.FromConfig(cfg.Scoring)
	if err != nil {
		return err
	}

	opts := []executor.Option{executor.WithConcurrency(cfg.Search.MaxConcurrentSegments)}
	if cfg.Store.Driver != "memory" {
		docs, err := store.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("opening document store: %w", err)
		}
		defer docs.Close()
		opts = append(opts, executor.WithStore(docs))
	}
	ex := executor.New(snap, sim, opts...)

	parsed, err := parser.New(snap, field).Parse(input)
	if err != nil {
		return err
	}
	switch plugin {
	case "":
	case "even":
		parsed = query.Custom{Name: "even", Inner: parsed, Plugin: ranker.Even{}}
	case "random":
		parsed = ranker.RandomizedCustomScoreQuery(parsed, cfg.Scoring.CustomScoreSeed)
	default:
		return fmt.Errorf("unknown plugin %q", plugin)
	}

	var res *executor.SearchResult
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		qc := cache.New(client, cfg.Redis.CacheTTL, cache.WithNamespace(cfg.Indexer.DataDir))
		var hit bool
		res, hit, err = qc.Search(ctx, ex, parsed, limit)
		if err != nil {
			return err
		}
		slog.Debug("cache lookup", "hit", hit)
	} else {
		res, err = ex.Search(ctx, parsed, limit)
		if err != nil {
			return err
		}
	}

	fmt.Printf("%d hits for %s\n", res.TotalHits, parsed)
	if cfg.Store.Driver == "memory" {
		for _, h := range res.Results {
			fmt.Printf("%.4f\t%d\n", h.Score, h.DocID)
		}
		return nil
	}
	hits, err := ex.Materialize(ctx, res.Results)
	if err != nil {
		return err
	}
	for _, h := range hits {
		fmt.Printf("%.4f\t%d\t%s\n", h.Score, h.DocID, h.JSON())
	}
	return nil
}
