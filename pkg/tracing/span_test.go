package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "search", "trace-1")
	require.Same(t, root, FromContext(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, span := StartChildSpan(ctx, "segment")
			span.SetAttr("segment", i)
			span.End()
		}(i)
	}
	wg.Wait()
	root.End()

	children := root.Children()
	require.Len(t, children, 8)
	seen := make(map[any]bool)
	for _, c := range children {
		assert.Equal(t, "trace-1", c.TraceID)
		v, ok := c.Attr("segment")
		require.True(t, ok)
		seen[v] = true
	}
	assert.Len(t, seen, 8)
}

func TestChildWithoutParent(t *testing.T) {
	ctx, span := StartChildSpan(context.Background(), "orphan")
	assert.Empty(t, span.TraceID)
	assert.Same(t, span, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}

func TestLogWritesEverySpan(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := StartSpan(context.Background(), "search", "trace-2")
	_, child := StartChildSpan(ctx, "weight")
	child.End()
	root.End()
	root.Log(logger)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "span=search")
	assert.Contains(t, lines[1], "span=weight")
	assert.Contains(t, lines[1], "depth=1")
	assert.Contains(t, lines[1], "trace_id=trace-2")
}
