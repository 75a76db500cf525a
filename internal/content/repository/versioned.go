package repository

import (
	"context"
	"errors"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"go.uber.org/zap"
)

// VersionHook is called with the full document after a version has been
// created or its content replaced in place. Hook errors are logged and never
// fail the write.
type VersionHook func(ctx context.Context, doc *content.Document) error

// Versioned exposes a VersionLog as a Store. Whole-document writes create a
// new version; global and page writes are merged into the active version in
// place.
type Versioned struct {
	log     VersionLog
	backend string
	hooks   []VersionHook
	logger  *zap.Logger
}

func NewVersioned(log VersionLog, backend string, logger *zap.Logger, hooks ...VersionHook) *Versioned {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Versioned{log: log, backend: backend, hooks: hooks, logger: logger}
}

func (v *Versioned) Backend() string { return v.backend }

// History returns the underlying version log.
func (v *Versioned) History() VersionLog { return v.log }

func (v *Versioned) Read(ctx context.Context) (*content.Document, error) {
	return v.log.ReadActive(ctx)
}

func (v *Versioned) WriteComplete(ctx context.Context, doc *content.Document) (*content.Document, error) {
	created, err := v.log.CreateVersion(ctx, doc.Global, doc.Pages)
	if err != nil {
		return nil, err
	}
	v.afterWrite(ctx, created)
	return created, nil
}

func (v *Versioned) WriteGlobal(ctx context.Context, global content.Global) (*content.Document, error) {
	active, err := v.log.ReadActive(ctx)
	if errors.Is(err, ErrNotFound) {
		return v.WriteComplete(ctx, &content.Document{Global: global, Pages: []content.Page{}})
	}
	if err != nil {
		return nil, err
	}
	if err := v.log.ReplaceContent(ctx, active.Version, global, active.Pages); err != nil {
		return nil, err
	}
	active.Global = global
	v.afterWrite(ctx, active)
	return active, nil
}

func (v *Versioned) WritePage(ctx context.Context, slug string, page content.Page) (*content.Page, error) {
	active, err := v.log.ReadActive(ctx)
	if errors.Is(err, ErrNotFound) {
		pages := content.UpsertPage(nil, slug, page)
		if _, err := v.WriteComplete(ctx, &content.Document{Global: content.Global{}, Pages: pages}); err != nil {
			return nil, err
		}
		return &pages[0], nil
	}
	if err != nil {
		return nil, err
	}
	pages := content.UpsertPage(active.Pages, slug, page)
	if err := v.log.ReplaceContent(ctx, active.Version, active.Global, pages); err != nil {
		return nil, err
	}
	active.Pages = pages
	v.afterWrite(ctx, active)
	saved := pages[content.FindPage(pages, slug)]
	return &saved, nil
}

func (v *Versioned) afterWrite(ctx context.Context, doc *content.Document) {
	for _, hook := range v.hooks {
		if err := hook(ctx, doc); err != nil {
			v.logger.Warn("content version hook failed", zap.Int("version", doc.Version), zap.Error(err))
		}
	}
}
