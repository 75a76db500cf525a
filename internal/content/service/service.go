package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"github.com/gogotex/gogotex/backend/content-service/internal/content/cache"
	"github.com/gogotex/gogotex/backend/content-service/internal/content/repository"
	"go.uber.org/zap"
)

// Service defines the content operations used by the pipeline and the handler layer.
type Service interface {
	GetCompleteContent(ctx context.Context) (*content.Document, error)
	GetGlobalContent(ctx context.Context) (content.Global, error)
	GetPageBySlug(ctx context.Context, slug string) (*content.Page, error)
	GetAllPages(ctx context.Context) ([]content.Page, error)
	UpdateGlobalContent(ctx context.Context, global content.Global) (*content.Document, error)
	UpdatePageBySlug(ctx context.Context, slug string, page content.Page) (*content.Page, error)
	UpdateCompleteContent(ctx context.Context, doc *content.Document) (*content.Document, error)
}

// History is implemented by services over a versioned backend.
type History interface {
	ListVersions(ctx context.Context) ([]content.VersionInfo, error)
	GetVersion(ctx context.Context, version int) (*content.Document, error)
	ActivateVersion(ctx context.Context, version int) (*content.Document, error)
}

type Option func(*ContentService)

// WithCache reads complete content through c for ttl. Every write through the
// service invalidates it.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *ContentService) {
		s.cache = c
		s.ttl = ttl
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *ContentService) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a ContentService over store.
func New(store repository.Store, opts ...Option) *ContentService {
	s := &ContentService{store: store, cache: cache.Nop{}, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	if log, ok := store.(interface{ History() repository.VersionLog }); ok {
		s.history = log.History()
	}
	return s
}

// ContentService implements Service, and History when the store is versioned.
type ContentService struct {
	store   repository.Store
	history repository.VersionLog
	cache   cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// Backend names the store in use.
func (s *ContentService) Backend() string { return s.store.Backend() }

func (s *ContentService) load(ctx context.Context) (*content.Document, error) {
	doc, err := s.store.Read(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", content.ErrContentNotFound, err)
		}
		return nil, err
	}
	return doc, nil
}

func (s *ContentService) GetCompleteContent(ctx context.Context) (*content.Document, error) {
	return s.cache.GetOrRefresh(ctx, s.ttl, s.load)
}

func (s *ContentService) GetGlobalContent(ctx context.Context) (content.Global, error) {
	doc, err := s.GetCompleteContent(ctx)
	if err != nil {
		if errors.Is(err, content.ErrContentNotFound) {
			return nil, fmt.Errorf("%w: %w", content.ErrGlobalContentNotFound, err)
		}
		return nil, err
	}
	if doc.Global == nil {
		return nil, content.ErrGlobalContentNotFound
	}
	return doc.Global, nil
}

func (s *ContentService) GetPageBySlug(ctx context.Context, slug string) (*content.Page, error) {
	doc, err := s.GetCompleteContent(ctx)
	if err != nil {
		if errors.Is(err, content.ErrContentNotFound) {
			return nil, &content.PageNotFoundError{Slug: slug}
		}
		return nil, err
	}
	i := content.FindPage(doc.Pages, slug)
	if i < 0 {
		return nil, &content.PageNotFoundError{Slug: slug}
	}
	page := doc.Pages[i]
	return &page, nil
}

// GetAllPages returns an empty slice, not an error, when no content exists.
func (s *ContentService) GetAllPages(ctx context.Context) ([]content.Page, error) {
	doc, err := s.GetCompleteContent(ctx)
	if err != nil {
		if errors.Is(err, content.ErrContentNotFound) {
			return []content.Page{}, nil
		}
		return nil, err
	}
	if doc.Pages == nil {
		return []content.Page{}, nil
	}
	return doc.Pages, nil
}

func (s *ContentService) UpdateGlobalContent(ctx context.Context, global content.Global) (*content.Document, error) {
	if global == nil {
		global = content.Global{}
	}
	defer s.invalidate(ctx)
	return s.store.WriteGlobal(ctx, global)
}

func (s *ContentService) UpdatePageBySlug(ctx context.Context, slug string, page content.Page) (*content.Page, error) {
	page.Slug = slug
	if err := content.ValidatePage(&page); err != nil {
		return nil, err
	}
	defer s.invalidate(ctx)
	return s.store.WritePage(ctx, slug, page)
}

func (s *ContentService) UpdateCompleteContent(ctx context.Context, doc *content.Document) (*content.Document, error) {
	if err := content.ValidateDocument(doc); err != nil {
		return nil, err
	}
	in := &content.Document{Global: doc.Global, Pages: doc.Pages}
	if in.Global == nil {
		in.Global = content.Global{}
	}
	if in.Pages == nil {
		in.Pages = []content.Page{}
	}
	defer s.invalidate(ctx)
	return s.store.WriteComplete(ctx, in)
}

func (s *ContentService) ListVersions(ctx context.Context) ([]content.VersionInfo, error) {
	if s.history == nil {
		return nil, content.ErrVersioningUnsupported
	}
	return s.history.ListVersions(ctx)
}

func (s *ContentService) GetVersion(ctx context.Context, version int) (*content.Document, error) {
	if s.history == nil {
		return nil, content.ErrVersioningUnsupported
	}
	doc, err := s.history.GetVersion(ctx, version)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", content.ErrVersionNotFound, version)
	}
	return doc, err
}

// ActivateVersion rolls the active pointer to version and returns the new
// active document.
func (s *ContentService) ActivateVersion(ctx context.Context, version int) (*content.Document, error) {
	if s.history == nil {
		return nil, content.ErrVersioningUnsupported
	}
	if err := s.history.Activate(ctx, version); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", content.ErrVersionNotFound, version)
		}
		return nil, err
	}
	s.invalidate(ctx)
	s.logger.Info("content version activated", zap.Int("version", version))
	return s.history.GetVersion(ctx, version)
}

func (s *ContentService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("content cache invalidation failed", zap.Error(err))
	}
}
