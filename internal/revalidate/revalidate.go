// Package revalidate tells the web host that rendered routes are stale.
package revalidate

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Invalidator invalidates one cached route. It is called once per affected path.
type Invalidator interface {
	Invalidate(ctx context.Context, path string) error
}

// Func adapts a function to Invalidator.
type Func func(ctx context.Context, path string) error

func (f Func) Invalidate(ctx context.Context, path string) error { return f(ctx, path) }

// Nop accepts every path and does nothing.
type Nop struct{}

func (Nop) Invalidate(ctx context.Context, path string) error { return nil }

// Multi fans a path out to every invalidator and joins their errors. All of
// them are called even when one fails.
type Multi []Invalidator

func (m Multi) Invalidate(ctx context.Context, path string) error {
	var errs []error
	for _, inv := range m {
		if err := inv.Invalidate(ctx, path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps the paths it was asked to invalidate. Paths listed in Fail
// return an error instead.
type Recorder struct {
	mu    sync.Mutex
	paths []string
	Fail  map[string]bool
}

func (r *Recorder) Invalidate(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail[path] {
		return fmt.Errorf("revalidate %s: forced failure", path)
	}
	r.paths = append(r.paths, path)
	return nil
}

// Paths returns the successfully invalidated paths in call order.
func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}
