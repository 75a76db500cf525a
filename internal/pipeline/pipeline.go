// Package pipeline applies website content updates coming from the admin UI.
//
// An update is sanitized and depth-bounded, then written as a whole document.
// When that fails, global content and every page are written one by one and
// per-page outcomes are reported. Every affected route is revalidated and the
// content is re-read to warm the read cache.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"github.com/gogotex/gogotex/backend/content-service/internal/content/service"
	"github.com/gogotex/gogotex/backend/content-service/internal/revalidate"
	"github.com/gogotex/gogotex/backend/content-service/pkg/metrics"
	"github.com/google/uuid"
	"github.com/ohler55/ojg/jp"
	"go.uber.org/zap"
)

const (
	ModeComplete    = "complete"
	ModeIncremental = "incremental"

	StatusUpdated = "updated"
	StatusError   = "error"
)

// PageResult is the outcome of one incremental page write.
type PageResult struct {
	Slug    string `json:"slug"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	ID      string `json:"id,omitempty"`
}

// Outcome holds the incremental results. It is empty after a successful
// whole-document update.
type Outcome struct {
	Global      string       `json:"global,omitempty"`
	GlobalError string       `json:"globalError,omitempty"`
	PagesError  string       `json:"pagesError,omitempty"`
	Pages       []PageResult `json:"pages,omitempty"`
}

// Result describes one UpdateWebsiteContent run.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Mode    string `json:"mode"`
	// CompleteError is why the whole-document write fell back.
	CompleteError      string            `json:"completeError,omitempty"`
	Result             Outcome           `json:"result"`
	RevalidatedPaths   []string          `json:"revalidatedPaths"`
	RevalidationErrors map[string]string `json:"revalidationErrors,omitempty"`
	Refreshed          bool              `json:"refreshed"`
	RefreshError       string            `json:"refreshError,omitempty"`
}

// PagesUpdated counts pages with StatusUpdated.
func (r *Result) PagesUpdated() int {
	n := 0
	for _, p := range r.Result.Pages {
		if p.Status == StatusUpdated {
			n++
		}
	}
	return n
}

type Pipeline struct {
	svc      service.Service
	inv      revalidate.Invalidator
	logger   *zap.Logger
	maxDepth int
}

type Option func(*Pipeline)

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxDepth sets the nesting limit applied to every update.
func WithMaxDepth(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

func New(svc service.Service, inv revalidate.Invalidator, opts ...Option) *Pipeline {
	if inv == nil {
		inv = revalidate.Nop{}
	}
	p := &Pipeline{svc: svc, inv: inv, logger: zap.NewNop(), maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(p)
	}
	return p
}

var pageSlugs = jp.MustParseString("$.pages[*].slug")

// UpdateWebsiteContent applies data, a mapping with "global" and/or "pages".
// It returns content.ErrInvalidContentData or content.ErrCircularReference
// before any write; every later failure is reported in the Result.
func (p *Pipeline) UpdateWebsiteContent(ctx context.Context, data map[string]any) (*Result, error) {
	log := p.logger.With(zap.String("run", uuid.NewString()))

	if data["global"] == nil && data["pages"] == nil {
		metrics.ContentUpdates.WithLabelValues("rejected", "invalid").Inc()
		return nil, content.ErrInvalidContentData
	}
	clean, err := Sanitize(data)
	if err != nil {
		metrics.ContentUpdates.WithLabelValues("rejected", "circular").Inc()
		log.Warn("content update rejected", zap.Error(err))
		return nil, err
	}
	BoundDepth(clean, p.maxDepth)

	res := &Result{RevalidatedPaths: []string{}}
	paths := newPathList()
	if err := p.updateComplete(ctx, clean); err == nil {
		res.Success = true
		res.Mode = ModeComplete
		for _, s := range pageSlugs.Get(clean) {
			if slug, ok := s.(string); ok {
				paths.add(content.RoutePath(slug))
			}
		}
	} else {
		log.Warn("whole-document update failed, updating incrementally", zap.Error(err))
		res.Mode = ModeIncremental
		res.CompleteError = err.Error()
		p.updateIncremental(ctx, clean, res, paths)
		res.Success = res.Result.Global == StatusUpdated || res.PagesUpdated() > 0
	}

	p.revalidate(ctx, paths.list(), res)
	if _, err := p.svc.GetCompleteContent(ctx); err != nil {
		res.RefreshError = err.Error()
	} else {
		res.Refreshed = true
	}
	res.Message = res.message()

	outcome := "success"
	switch {
	case !res.Success:
		outcome = "failed"
	case res.partial():
		outcome = "partial"
	}
	metrics.ContentUpdates.WithLabelValues(res.Mode, outcome).Inc()
	log.Info("content update finished",
		zap.String("mode", res.Mode),
		zap.String("outcome", outcome),
		zap.Int("pages", len(res.Result.Pages)),
		zap.Int("pages_updated", res.PagesUpdated()),
		zap.Strings("revalidated", res.RevalidatedPaths),
		zap.Int("revalidation_errors", len(res.RevalidationErrors)),
		zap.Bool("refreshed", res.Refreshed),
	)
	return res, nil
}

func (p *Pipeline) updateComplete(ctx context.Context, clean map[string]any) error {
	var in struct {
		Global content.Global `json:"global"`
		Pages  []content.Page `json:"pages"`
	}
	if err := decode(clean, &in); err != nil {
		return fmt.Errorf("decode content: %w", err)
	}
	_, err := p.svc.UpdateCompleteContent(ctx, &content.Document{Global: in.Global, Pages: in.Pages})
	return err
}

// updateIncremental writes global first, then pages in input order. A failed
// page is recorded and the loop moves on.
func (p *Pipeline) updateIncremental(ctx context.Context, clean map[string]any, res *Result, paths *pathList) {
	if g := clean["global"]; g != nil {
		if global, ok := g.(map[string]any); !ok {
			res.Result.GlobalError = "global must be an object"
		} else if _, err := p.svc.UpdateGlobalContent(ctx, content.Global(global)); err != nil {
			res.Result.GlobalError = err.Error()
		} else {
			res.Result.Global = StatusUpdated
		}
	}

	raw, present := clean["pages"]
	if !present || raw == nil {
		return
	}
	pages, ok := raw.([]any)
	if !ok {
		res.Result.PagesError = "pages must be an array"
		return
	}
	res.Result.Pages = make([]PageResult, 0, len(pages))
	for _, item := range pages {
		r := p.updatePage(ctx, item)
		metrics.ContentPageUpdates.WithLabelValues(r.Status).Inc()
		paths.add(content.RoutePath(r.Slug))
		res.Result.Pages = append(res.Result.Pages, r)
	}
}

func (p *Pipeline) updatePage(ctx context.Context, item any) PageResult {
	m, ok := item.(map[string]any)
	if !ok {
		return PageResult{Slug: "/", Status: StatusError, Message: "page must be an object"}
	}
	id, slug := applyPageDefaults(m)
	r := PageResult{Slug: slug, ID: id}

	var page content.Page
	if err := decode(m, &page); err != nil {
		r.Status, r.Message = StatusError, err.Error()
		return r
	}
	if _, err := p.svc.UpdatePageBySlug(ctx, slug, page); err != nil {
		r.Status, r.Message = StatusError, err.Error()
		return r
	}
	r.Status = StatusUpdated
	return r
}

// applyPageDefaults fills a missing slug from id (or "/") and a missing title
// from id (or "Untitled Page").
func applyPageDefaults(m map[string]any) (id, slug string) {
	id, _ = m["id"].(string)
	slug, _ = m["slug"].(string)
	if slug == "" {
		slug = id
	}
	if slug == "" {
		slug = "/"
	}
	m["slug"] = slug
	if title, _ := m["title"].(string); title == "" {
		if id != "" {
			m["title"] = "Page " + id
		} else {
			m["title"] = "Untitled Page"
		}
	}
	return id, slug
}

func (p *Pipeline) revalidate(ctx context.Context, paths []string, res *Result) {
	for _, path := range paths {
		if err := p.inv.Invalidate(ctx, path); err != nil {
			if res.RevalidationErrors == nil {
				res.RevalidationErrors = map[string]string{}
			}
			res.RevalidationErrors[path] = err.Error()
			metrics.ContentRevalidations.WithLabelValues("error").Inc()
			continue
		}
		res.RevalidatedPaths = append(res.RevalidatedPaths, path)
		metrics.ContentRevalidations.WithLabelValues("ok").Inc()
	}
}

func (r *Result) partial() bool {
	if r.Mode == ModeComplete {
		return false
	}
	return r.Result.GlobalError != "" || r.Result.PagesError != "" || r.PagesUpdated() < len(r.Result.Pages)
}

func (r *Result) message() string {
	var msg string
	switch {
	case r.Mode == ModeComplete:
		msg = "Content updated successfully"
	case !r.Success:
		msg = "No content was saved"
		if r.CompleteError != "" {
			msg += ": " + r.CompleteError
		}
		return msg
	case r.partial():
		parts := []string{}
		if len(r.Result.Pages) > 0 {
			parts = append(parts, fmt.Sprintf("%d of %d pages updated", r.PagesUpdated(), len(r.Result.Pages)))
		}
		if r.Result.GlobalError != "" {
			parts = append(parts, "global content failed")
		}
		if r.Result.PagesError != "" {
			parts = append(parts, r.Result.PagesError)
		}
		msg = "Content partially updated: " + strings.Join(parts, ", ")
	default:
		msg = "Content updated incrementally"
	}
	if !r.Refreshed {
		msg += " (saved, but the view could not be refreshed)"
	}
	return msg
}

// Fatal reports whether err aborted an update before anything was written.
func Fatal(err error) bool {
	return errors.Is(err, content.ErrInvalidContentData) || errors.Is(err, content.ErrCircularReference)
}

// pathList keeps route paths unique in insertion order, root first.
type pathList struct {
	seen  map[string]bool
	paths []string
}

func newPathList() *pathList {
	l := &pathList{seen: map[string]bool{}}
	l.add("/")
	return l
}

func (l *pathList) add(path string) {
	if l.seen[path] {
		return
	}
	l.seen[path] = true
	l.paths = append(l.paths, path)
}

func (l *pathList) list() []string { return l.paths }
