package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"github.com/google/uuid"
)

// MemoryLog is an in-memory VersionLog used by tests and as the fallback when
// no database is configured.
type MemoryLog struct {
	mu    sync.RWMutex
	store map[int]*content.Document
	now   func() time.Time
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{store: make(map[int]*content.Document), now: time.Now}
}

func (m *MemoryLog) ReadActive(ctx context.Context) (*content.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *content.Document
	for _, d := range m.store {
		if d.Active && (best == nil || d.Version > best.Version) {
			best = d
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best.Clone()
}

func (m *MemoryLog) CreateVersion(ctx context.Context, global content.Global, pages []content.Page) (*content.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := 1
	for v, d := range m.store {
		if v >= next {
			next = v + 1
		}
		d.Active = false
	}
	doc := &content.Document{
		ID:        uuid.NewString(),
		Version:   next,
		Active:    true,
		Timestamp: m.now().UTC(),
		Global:    global,
		Pages:     pages,
	}
	stored, err := doc.Clone()
	if err != nil {
		return nil, err
	}
	m.store[next] = stored
	return doc, nil
}

func (m *MemoryLog) CountVersions(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.store)), nil
}

func (m *MemoryLog) ListVersions(ctx context.Context) ([]content.VersionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]content.VersionInfo, 0, len(m.store))
	for _, d := range m.store {
		out = append(out, d.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (m *MemoryLog) GetVersion(ctx context.Context, version int) (*content.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.store[version]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone()
}

func (m *MemoryLog) Activate(ctx context.Context, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[version]; !ok {
		return ErrNotFound
	}
	for v, d := range m.store {
		d.Active = v == version
	}
	return nil
}

func (m *MemoryLog) ReplaceContent(ctx context.Context, version int, global content.Global, pages []content.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[version]
	if !ok {
		return ErrNotFound
	}
	next := &content.Document{Global: global, Pages: pages}
	copied, err := next.Clone()
	if err != nil {
		return err
	}
	d.Global = copied.Global
	d.Pages = copied.Pages
	return nil
}
