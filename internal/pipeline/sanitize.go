package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
)

const (
	// DefaultMaxDepth bounds nesting when no other limit is configured.
	DefaultMaxDepth = 25
	// DepthExceeded replaces any object or array nested at or below the limit.
	DepthExceeded = "[max depth exceeded]"
)

// Sanitize deep-copies data through a JSON round-trip. Anything that cannot be
// serialized, reference cycles included, fails with content.ErrCircularReference.
// The copy shares nothing with data.
func Sanitize(data map[string]any) (map[string]any, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", content.ErrCircularReference, err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", content.ErrCircularReference, err)
	}
	return out, nil
}

// BoundDepth replaces every object or array whose depth reaches limit with
// DepthExceeded. The root is depth 0. v is modified in place and returned; it
// must be a tree of map[string]any and []any, as produced by Sanitize.
// Applying BoundDepth to its own output changes nothing.
func BoundDepth(v any, limit int) any {
	if limit < 1 {
		limit = DefaultMaxDepth
	}
	type frame struct {
		node  any
		depth int
	}
	stack := []frame{{node: v}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		child := f.depth + 1
		switch n := f.node.(type) {
		case map[string]any:
			for k, c := range n {
				if !isContainer(c) {
					continue
				}
				if child >= limit {
					n[k] = DepthExceeded
					continue
				}
				stack = append(stack, frame{node: c, depth: child})
			}
		case []any:
			for i, c := range n {
				if !isContainer(c) {
					continue
				}
				if child >= limit {
					n[i] = DepthExceeded
					continue
				}
				stack = append(stack, frame{node: c, depth: child})
			}
		}
	}
	return v
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// decode converts a sanitized value into a typed one.
func decode(v any, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
