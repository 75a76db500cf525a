package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"github.com/gogotex/gogotex/backend/content-service/internal/content/service"
	"github.com/gogotex/gogotex/backend/content-service/internal/pipeline"
	"github.com/gogotex/gogotex/backend/content-service/internal/revalidate"
	"github.com/ohler55/ojg/jp"
	"go.uber.org/zap"
)

// Snapshots links archived versions.
type Snapshots interface {
	PresignedURL(ctx context.Context, version int, expires time.Duration) (string, error)
}

// Dependencies are the collaborators of the content routes. History may be nil
// for backends without versions; WriteGuards run before every write route.
type Dependencies struct {
	Service     service.Service
	History     service.History
	Pipeline    *pipeline.Pipeline
	Invalidator revalidate.Invalidator
	Snapshots   Snapshots
	WriteGuards []gin.HandlerFunc
	Logger      *zap.Logger
}

const snapshotLinkTTL = 15 * time.Minute

type routes struct {
	Dependencies
}

func RegisterContentRoutes(r gin.IRouter, d Dependencies) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Invalidator == nil {
		d.Invalidator = revalidate.Nop{}
	}
	h := &routes{Dependencies: d}

	api := r.Group("/api/content")
	api.GET("", h.getComplete)
	api.GET("/global", h.getGlobal)
	api.GET("/pages", h.getPages)
	api.GET("/page", h.getPage)
	api.GET("/query", h.query)
	api.GET("/versions", h.listVersions)
	api.GET("/versions/:version", h.getVersion)
	api.GET("/versions/:version/snapshot", h.snapshot)

	w := api.Group("", d.WriteGuards...)
	w.PUT("", h.putComplete)
	w.PUT("/global", h.putGlobal)
	w.PUT("/page", h.putPage)
	w.POST("/update", h.update)
	w.POST("/versions/:version/activate", h.activate)
}

// statusFor maps content errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, content.ErrInvalidContentData), errors.Is(err, content.ErrInvalidContent),
		errors.Is(err, errMalformedBody):
		return http.StatusBadRequest
	case errors.Is(err, content.ErrCircularReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, content.ErrPageNotFound),
		errors.Is(err, content.ErrGlobalContentNotFound),
		errors.Is(err, content.ErrContentNotFound),
		errors.Is(err, content.ErrVersionNotFound):
		return http.StatusNotFound
	case errors.Is(err, content.ErrVersioningUnsupported), errors.Is(err, content.ErrArchiveUnavailable):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func (h *routes) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.Logger.Error("content request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(code, gin.H{"error": err.Error(), "status": code})
}

func (h *routes) getComplete(c *gin.Context) {
	doc, err := h.Service.GetCompleteContent(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *routes) getGlobal(c *gin.Context) {
	g, err := h.Service.GetGlobalContent(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *routes) getPages(c *gin.Context) {
	pages, err := h.Service.GetAllPages(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pages)
}

func (h *routes) getPage(c *gin.Context) {
	slug, ok := c.GetQuery("slug")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug query parameter is required", "status": http.StatusBadRequest})
		return
	}
	page, err := h.Service.GetPageBySlug(c.Request.Context(), slug)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// query evaluates a JSONPath expression against the current document.
func (h *routes) query(c *gin.Context) {
	expr := c.Query("path")
	x, err := jp.ParseString(expr)
	if expr == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid jsonpath " + strconv.Quote(expr), "status": http.StatusBadRequest})
		return
	}
	doc, err := h.Service.GetCompleteContent(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	b, err := json.Marshal(doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	var root any
	if err := json.Unmarshal(b, &root); err != nil {
		h.fail(c, err)
		return
	}
	results := x.Get(root)
	if results == nil {
		results = []any{}
	}
	c.JSON(http.StatusOK, gin.H{"path": expr, "results": results})
}

func (h *routes) putComplete(c *gin.Context) {
	var doc content.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "status": http.StatusBadRequest})
		return
	}
	saved, err := h.Service.UpdateCompleteContent(c.Request.Context(), &doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.revalidate(c.Request.Context(), saved.Pages)
	c.JSON(http.StatusOK, saved)
}

func (h *routes) putGlobal(c *gin.Context) {
	var g content.Global
	if err := c.ShouldBindJSON(&g); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "status": http.StatusBadRequest})
		return
	}
	saved, err := h.Service.UpdateGlobalContent(c.Request.Context(), g)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.revalidate(c.Request.Context(), nil)
	c.JSON(http.StatusOK, saved.Global)
}

func (h *routes) putPage(c *gin.Context) {
	slug, ok := c.GetQuery("slug")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug query parameter is required", "status": http.StatusBadRequest})
		return
	}
	var page content.Page
	if err := c.ShouldBindJSON(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "status": http.StatusBadRequest})
		return
	}
	saved, err := h.Service.UpdatePageBySlug(c.Request.Context(), slug, page)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.revalidate(c.Request.Context(), []content.Page{*saved})
	c.JSON(http.StatusOK, saved)
}

// update runs the update pipeline. A run that saved nothing answers 500 with
// the full result so the admin UI can show what failed.
func (h *routes) update(c *gin.Context) {
	var data map[string]any
	if err := c.ShouldBindJSON(&data); err != nil {
		h.fail(c, updateBindError(err))
		return
	}
	res, err := h.Pipeline.UpdateWebsiteContent(c.Request.Context(), data)
	if err != nil {
		if pipeline.Fatal(err) {
			h.Logger.Info("content update rejected", zap.Error(err))
		}
		h.fail(c, err)
		return
	}
	code := http.StatusOK
	if !res.Success {
		code = http.StatusInternalServerError
	}
	c.JSON(code, res)
}

// errMalformedBody is a request body that is not JSON at all.
var errMalformedBody = errors.New("malformed JSON body")

// updateBindError separates bodies that are not JSON from JSON that is not a
// content object. An empty body counts as missing content.
func updateBindError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) || errors.Is(err, io.EOF) {
		return content.ErrInvalidContentData
	}
	return fmt.Errorf("%w: %v", errMalformedBody, err)
}

func (h *routes) listVersions(c *gin.Context) {
	if h.History == nil {
		h.fail(c, content.ErrVersioningUnsupported)
		return
	}
	list, err := h.History.ListVersions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *routes) getVersion(c *gin.Context) {
	if h.History == nil {
		h.fail(c, content.ErrVersioningUnsupported)
		return
	}
	v, ok := versionParam(c)
	if !ok {
		return
	}
	doc, err := h.History.GetVersion(c.Request.Context(), v)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// snapshot redirects to a short-lived download link of the archived version.
func (h *routes) snapshot(c *gin.Context) {
	if h.History == nil {
		h.fail(c, content.ErrVersioningUnsupported)
		return
	}
	if h.Snapshots == nil {
		h.fail(c, content.ErrArchiveUnavailable)
		return
	}
	v, ok := versionParam(c)
	if !ok {
		return
	}
	if _, err := h.History.GetVersion(c.Request.Context(), v); err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.Snapshots.PresignedURL(c.Request.Context(), v, snapshotLinkTTL)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, u)
}

func (h *routes) activate(c *gin.Context) {
	if h.History == nil {
		h.fail(c, content.ErrVersioningUnsupported)
		return
	}
	v, ok := versionParam(c)
	if !ok {
		return
	}
	doc, err := h.History.ActivateVersion(c.Request.Context(), v)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.revalidate(c.Request.Context(), doc.Pages)
	c.JSON(http.StatusOK, doc.Info())
}

func versionParam(c *gin.Context) (int, bool) {
	v, err := strconv.Atoi(c.Param("version"))
	if err != nil || v < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "version must be a positive integer", "status": http.StatusBadRequest})
		return 0, false
	}
	return v, true
}

// revalidate invalidates the root route and every page route after a direct
// write. Failures are logged only.
func (h *routes) revalidate(ctx context.Context, pages []content.Page) {
	paths := []string{"/"}
	seen := map[string]bool{"/": true}
	for _, p := range pages {
		path := content.RoutePath(p.Slug)
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	for _, path := range paths {
		if err := h.Invalidator.Invalidate(ctx, path); err != nil {
			h.Logger.Warn("route revalidation failed", zap.String("route", path), zap.Error(err))
		}
	}
}
