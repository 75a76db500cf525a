package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"github.com/stretchr/testify/require"
)

func deepTree(levels int) map[string]any {
	var node any = "leaf"
	for i := 0; i < levels; i++ {
		if i%2 == 0 {
			node = []any{node, float64(i)}
		} else {
			node = map[string]any{"child": node, "n": float64(i)}
		}
	}
	return map[string]any{"global": node}
}

func maxContainerDepth(v any, depth int) int {
	best := -1
	switch n := v.(type) {
	case map[string]any:
		best = depth
		for _, c := range n {
			if d := maxContainerDepth(c, depth+1); d > best {
				best = d
			}
		}
	case []any:
		best = depth
		for _, c := range n {
			if d := maxContainerDepth(c, depth+1); d > best {
				best = d
			}
		}
	}
	return best
}

func TestBoundDepth_Idempotent(t *testing.T) {
	in, err := Sanitize(deepTree(60))
	require.NoError(t, err)
	once := BoundDepth(in, DefaultMaxDepth)

	again, err := Sanitize(once.(map[string]any))
	require.NoError(t, err)
	twice := BoundDepth(again, DefaultMaxDepth)

	require.Equal(t, once, twice)
	require.Equal(t, DefaultMaxDepth-1, maxContainerDepth(once, 0))
}

func TestBoundDepth_ReplacesAtLimit(t *testing.T) {
	in := map[string]any{
		"a":    map[string]any{"b": map[string]any{"c": 1.0}},
		"list": []any{[]any{"x"}, "y"},
		"flat": "kept",
	}
	out := BoundDepth(in, 2)
	require.Equal(t, map[string]any{
		"a":    map[string]any{"b": DepthExceeded},
		"list": []any{DepthExceeded, "y"},
		"flat": "kept",
	}, out)
}

func TestBoundDepth_ScalarsAndDefaults(t *testing.T) {
	require.Equal(t, "x", BoundDepth("x", 3))
	shallow := map[string]any{"a": map[string]any{"b": true}}
	require.Equal(t, shallow, BoundDepth(shallow, 0), "non-positive limits fall back to the default")
}

func TestSanitize(t *testing.T) {
	src := map[string]any{"global": map[string]any{"count": 3, "tags": []string{"a"}}}
	out, err := Sanitize(src)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"global": map[string]any{"count": 3.0, "tags": []any{"a"}}}, out)

	// the copy is independent of the input
	out["global"].(map[string]any)["count"] = 4.0
	require.Equal(t, 3, src["global"].(map[string]any)["count"])

	cyclic := map[string]any{}
	cyclic["me"] = cyclic
	_, err = Sanitize(map[string]any{"global": cyclic})
	require.ErrorIs(t, err, content.ErrCircularReference)

	_, err = Sanitize(map[string]any{"global": map[string]any{"fn": func() {}}})
	require.ErrorIs(t, err, content.ErrCircularReference)
}

func TestApplyPageDefaults(t *testing.T) {
	m := map[string]any{"id": "pricing"}
	id, slug := applyPageDefaults(m)
	require.Equal(t, "pricing", id)
	require.Equal(t, "pricing", slug)
	require.Equal(t, "Page pricing", m["title"])

	m = map[string]any{"slug": "faq", "title": "FAQ"}
	_, slug = applyPageDefaults(m)
	require.Equal(t, "faq", slug)
	require.Equal(t, "FAQ", m["title"])

	m = map[string]any{}
	_, slug = applyPageDefaults(m)
	require.Equal(t, "/", slug)
	require.Equal(t, "Untitled Page", m["title"])
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	calls := 0
	err := Retry(ctx, Policy{MaxAttempts: 3, Delay: time.Millisecond, Backoff: true}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)

	calls = 0
	err = Retry(ctx, Policy{MaxAttempts: 2, Delay: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return errors.New("down")
	})
	require.EqualError(t, err, "down")
	require.Equal(t, 2, calls)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err = Retry(cctx, Policy{MaxAttempts: 5, Delay: time.Hour}, func(ctx context.Context) error {
		return errors.New("down")
	})
	require.ErrorIs(t, err, context.Canceled)
}
