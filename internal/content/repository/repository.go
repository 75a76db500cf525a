package repository

import (
	"context"
	"errors"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
)

var (
	ErrNotFound = errors.New("content not found")
)

// Store is the persistence contract the content service writes through.
// FileRepo implements it directly; versioned backends implement it through
// Versioned.
type Store interface {
	Read(ctx context.Context) (*content.Document, error)
	WriteGlobal(ctx context.Context, global content.Global) (*content.Document, error)
	WritePage(ctx context.Context, slug string, page content.Page) (*content.Page, error)
	WriteComplete(ctx context.Context, doc *content.Document) (*content.Document, error)
	Backend() string
}

// VersionLog is an append-only history of content documents with a single
// active record.
type VersionLog interface {
	// ReadActive returns the active document. When several are active the one
	// with the highest version wins.
	ReadActive(ctx context.Context) (*content.Document, error)
	// CreateVersion inserts max(version)+1 as the only active document.
	CreateVersion(ctx context.Context, global content.Global, pages []content.Page) (*content.Document, error)
	CountVersions(ctx context.Context) (int64, error)
	ListVersions(ctx context.Context) ([]content.VersionInfo, error)
	GetVersion(ctx context.Context, version int) (*content.Document, error)
	// Activate makes version the only active document.
	Activate(ctx context.Context, version int) error
	// ReplaceContent rewrites global and pages of an existing version in place.
	ReplaceContent(ctx context.Context, version int, global content.Global, pages []content.Page) error
}
