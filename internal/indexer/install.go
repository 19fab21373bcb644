package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/store"
)

// Install makes a committed build the current index in dir. The build's
// stored fields are held in staged until then. Segment files are written to
// a staging directory first, so a failure there leaves the previous index
// and its store untouched. dst is then refilled from staged, unless it is
// staged itself, and the staged files replace the previous segment files.
func Install(ctx context.Context, snap *index.Snapshot, staged *store.Memory, dst store.Store, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	staging, err := os.MkdirTemp(dir, ".staging-")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	names, err := Persist(snap, staging)
	if err != nil {
		return nil, err
	}

	if dst != nil && dst != staged {
		if err := dst.Reset(ctx); err != nil {
			return nil, fmt.Errorf("resetting document store: %w", err)
		}
		if err := staged.CopyTo(ctx, dst); err != nil {
			return nil, err
		}
	}

	old, err := filepath.Glob(filepath.Join(dir, "*"+segment.FileExt))
	if err != nil {
		return nil, err
	}
	for _, f := range old {
		if err := os.Remove(f); err != nil {
			return nil, fmt.Errorf("removing previous segment: %w", err)
		}
	}
	for _, name := range names {
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(dir, name)); err != nil {
			return nil, fmt.Errorf("installing %s: %w", name, err)
		}
	}
	slog.Default().With("component", "indexer").Info("index installed",
		"dir", dir,
		"segments", len(names),
		"stored_docs", staged.Len(),
	)
	return names, nil
}
