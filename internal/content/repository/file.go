package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
)

// fileDocument is the on-disk shape: only global and pages.
type fileDocument struct {
	Global content.Global `json:"global"`
	Pages  []content.Page `json:"pages"`
}

// FileRepo keeps the whole content document in a single JSON file. It has no
// history: every write overwrites the file.
type FileRepo struct {
	path string
	// encode is swapped in tests to corrupt the serialized bytes.
	encode func(v any) ([]byte, error)
}

func NewFileRepo(path string) *FileRepo {
	return &FileRepo{path: path, encode: func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}}
}

func (r *FileRepo) Backend() string { return "file" }

func (r *FileRepo) Path() string { return r.path }

// Read parses the content file. A missing file yields ErrNotFound; an
// unparsable one yields an error matching both ErrNotFound and
// content.ErrMalformedContent.
func (r *FileRepo) Read(ctx context.Context) (*content.Document, error) {
	b, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	var fd fileDocument
	if err := json.Unmarshal(b, &fd); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrNotFound, content.ErrMalformedContent, err)
	}
	return &content.Document{Global: fd.Global, Pages: fd.Pages}, nil
}

func (r *FileRepo) WriteGlobal(ctx context.Context, global content.Global) (*content.Document, error) {
	doc, err := r.current(ctx)
	if err != nil {
		return nil, err
	}
	doc.Global = global
	if err := r.write(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *FileRepo) WritePage(ctx context.Context, slug string, page content.Page) (*content.Page, error) {
	doc, err := r.current(ctx)
	if err != nil {
		return nil, err
	}
	doc.Pages = content.UpsertPage(doc.Pages, slug, page)
	if err := r.write(doc); err != nil {
		return nil, err
	}
	saved := doc.Pages[content.FindPage(doc.Pages, slug)]
	return &saved, nil
}

// WriteComplete overwrites the file without reading it first, so it also
// recovers a malformed file.
func (r *FileRepo) WriteComplete(ctx context.Context, doc *content.Document) (*content.Document, error) {
	out := &content.Document{Global: doc.Global, Pages: doc.Pages}
	if err := r.write(out); err != nil {
		return nil, err
	}
	return out, nil
}

// current returns the persisted document, or an empty one when the file does
// not exist yet. A malformed file is not silently replaced.
func (r *FileRepo) current(ctx context.Context) (*content.Document, error) {
	doc, err := r.Read(ctx)
	if err == nil {
		return doc, nil
	}
	if errors.Is(err, content.ErrMalformedContent) || !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return &content.Document{Global: content.Global{}, Pages: []content.Page{}}, nil
}

// write serializes doc to a temp file in the target directory, re-parses the
// temp file, and only then renames it over the target.
func (r *FileRepo) write(doc *content.Document) error {
	fd := fileDocument{Global: doc.Global, Pages: doc.Pages}
	if fd.Global == nil {
		fd.Global = content.Global{}
	}
	if fd.Pages == nil {
		fd.Pages = []content.Page{}
	}
	b, err := r.encode(fd)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", content.ErrInvalidContentWrite, err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %v", content.ErrInvalidContentWrite, err)
	}
	tmp, err := os.CreateTemp(dir, ".content-*.json")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", content.ErrInvalidContentWrite, err)
	}
	tmpName := tmp.Name()
	fail := func(step string, cause error) error {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %s: %v", content.ErrInvalidContentWrite, step, cause)
	}

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fail("write temp", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("close temp", err)
	}

	check, err := os.ReadFile(tmpName)
	if err != nil {
		return fail("reread temp", err)
	}
	var parsed fileDocument
	if err := json.Unmarshal(check, &parsed); err != nil {
		return fail("verify temp", err)
	}

	if info, err := os.Stat(r.path); err == nil {
		_ = os.Chmod(tmpName, info.Mode())
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fail("rename temp", err)
	}
	return nil
}
