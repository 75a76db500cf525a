package cache

import (
	"context"
	"sync"
	"time"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"github.com/gogotex/gogotex/backend/content-service/pkg/metrics"
)

// State is the lifecycle of a Memory cache.
type State int

const (
	Uninitialized State = iota
	Populated
)

func (s State) String() string {
	if s == Populated {
		return "populated"
	}
	return "uninitialized"
}

// Memory caches one document in process. It is either Uninitialized or
// Populated with a document and the time it was fetched.
type Memory struct {
	mu        sync.Mutex
	state     State
	doc       *content.Document
	fetchedAt time.Time
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// NewMemoryWithClock is used by tests to control expiry.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{now: now}
}

// State returns the current lifecycle state and, when populated, the fetch time.
func (m *Memory) State() (State, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.fetchedAt
}

// GetOrRefresh holds the lock while loading so concurrent readers share one load.
func (m *Memory) GetOrRefresh(ctx context.Context, ttl time.Duration, load Loader) (*content.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Populated && m.now().Sub(m.fetchedAt) < ttl {
		metrics.ContentCacheLookups.WithLabelValues("memory", "hit").Inc()
		return m.doc.Clone()
	}
	metrics.ContentCacheLookups.WithLabelValues("memory", "miss").Inc()
	doc, err := load(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := doc.Clone()
	if err != nil {
		return nil, err
	}
	m.state = Populated
	m.doc = stored
	m.fetchedAt = m.now()
	return doc, nil
}

func (m *Memory) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Uninitialized
	m.doc = nil
	m.fetchedAt = time.Time{}
	return nil
}
