package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "search", "trace-1")
	_, parse := StartChildSpan(ctx, "parse")
	parse.SetAttr("terms", 2)
	parse.End()
	_, exec := StartChildSpan(ctx, "execute")
	exec.End()
	root.End()

	require.Len(t, root.Children, 2)
	assert.Equal(t, "trace-1", root.Children[0].TraceID)
	assert.Equal(t, 2, root.Children[0].Attrs["terms"])
	assert.Same(t, root, SpanFromContext(ctx))

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[1], "span=parse")
	assert.Contains(t, lines[1], "depth=1")
}

func TestChildWithoutParent(t *testing.T) {
	ctx, span := StartChildSpan(context.Background(), "orphan")
	assert.Empty(t, span.TraceID)
	assert.Same(t, span, SpanFromContext(ctx))
	assert.Nil(t, SpanFromContext(context.Background()))
}
