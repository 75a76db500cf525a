package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// contentVersion is the SQL row for one content version. Global and pages are
// stored as JSON text.
type contentVersion struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Version   int       `gorm:"uniqueIndex;not null"`
	Active    bool      `gorm:"index;not null"`
	Timestamp time.Time `gorm:"not null"`
	PageCount int       `gorm:"not null"`
	Global    string    `gorm:"type:text;not null"`
	Pages     string    `gorm:"type:text;not null"`
}

func (contentVersion) TableName() string { return "content_versions" }

// SQLLog is a VersionLog over any gorm dialect (SQLite in practice).
type SQLLog struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQLLog(db *gorm.DB) (*SQLLog, error) {
	if db == nil {
		return nil, errors.New("database handle is required")
	}
	if err := db.AutoMigrate(&contentVersion{}); err != nil {
		return nil, fmt.Errorf("migrate content_versions: %w", err)
	}
	return &SQLLog{db: db, now: time.Now}, nil
}

func (s *SQLLog) ReadActive(ctx context.Context) (*content.Document, error) {
	var row contentVersion
	err := s.db.WithContext(ctx).Where("active = ?", true).Order("version DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.document()
}

// CreateVersion runs in one transaction, which serializes writers on SQLite.
func (s *SQLLog) CreateVersion(ctx context.Context, global content.Global, pages []content.Page) (*content.Document, error) {
	if pages == nil {
		pages = []content.Page{}
	}
	doc := &content.Document{
		ID:        uuid.NewString(),
		Active:    true,
		Timestamp: s.now().UTC(),
		Global:    global,
		Pages:     pages,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest struct{ Max *int }
		if err := tx.Model(&contentVersion{}).Select("MAX(version) AS max").Scan(&latest).Error; err != nil {
			return err
		}
		doc.Version = 1
		if latest.Max != nil {
			doc.Version = *latest.Max + 1
		}
		if err := tx.Model(&contentVersion{}).Where("active = ?", true).Update("active", false).Error; err != nil {
			return err
		}
		row, err := newContentVersion(doc)
		if err != nil {
			return err
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create content version: %w", err)
	}
	return doc, nil
}

func (s *SQLLog) CountVersions(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&contentVersion{}).Count(&n).Error
	return n, err
}

func (s *SQLLog) ListVersions(ctx context.Context) ([]content.VersionInfo, error) {
	var rows []contentVersion
	err := s.db.WithContext(ctx).
		Select("version", "active", "timestamp", "page_count").
		Order("version DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]content.VersionInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, content.VersionInfo{Version: r.Version, Active: r.Active, Timestamp: r.Timestamp, Pages: r.PageCount})
	}
	return out, nil
}

func (s *SQLLog) GetVersion(ctx context.Context, version int) (*content.Document, error) {
	var row contentVersion
	err := s.db.WithContext(ctx).Where("version = ?", version).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.document()
}

func (s *SQLLog) Activate(ctx context.Context, version int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&contentVersion{}).Where("version = ?", version).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if err := tx.Model(&contentVersion{}).Where("version <> ?", version).Update("active", false).Error; err != nil {
			return err
		}
		return tx.Model(&contentVersion{}).Where("version = ?", version).Update("active", true).Error
	})
}

func (s *SQLLog) ReplaceContent(ctx context.Context, version int, global content.Global, pages []content.Page) error {
	g, p, err := encodeContent(global, pages)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&contentVersion{}).Where("version = ?", version).
		Updates(map[string]any{"global": g, "pages": p, "page_count": len(pages)})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func newContentVersion(doc *content.Document) (*contentVersion, error) {
	g, p, err := encodeContent(doc.Global, doc.Pages)
	if err != nil {
		return nil, err
	}
	return &contentVersion{
		ID:        doc.ID,
		Version:   doc.Version,
		Active:    doc.Active,
		Timestamp: doc.Timestamp,
		PageCount: len(doc.Pages),
		Global:    g,
		Pages:     p,
	}, nil
}

func encodeContent(global content.Global, pages []content.Page) (string, string, error) {
	if global == nil {
		global = content.Global{}
	}
	if pages == nil {
		pages = []content.Page{}
	}
	g, err := json.Marshal(global)
	if err != nil {
		return "", "", fmt.Errorf("encode global: %w", err)
	}
	p, err := json.Marshal(pages)
	if err != nil {
		return "", "", fmt.Errorf("encode pages: %w", err)
	}
	return string(g), string(p), nil
}

func (r contentVersion) document() (*content.Document, error) {
	doc := &content.Document{ID: r.ID, Version: r.Version, Active: r.Active, Timestamp: r.Timestamp}
	if err := json.Unmarshal([]byte(r.Global), &doc.Global); err != nil {
		return nil, fmt.Errorf("%w: version %d global: %v", content.ErrMalformedContent, r.Version, err)
	}
	if err := json.Unmarshal([]byte(r.Pages), &doc.Pages); err != nil {
		return nil, fmt.Errorf("%w: version %d pages: %v", content.ErrMalformedContent, r.Version, err)
	}
	return doc, nil
}
