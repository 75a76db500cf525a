package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"github.com/gogotex/gogotex/backend/content-service/internal/database"
	"github.com/stretchr/testify/require"
)

func newSQLLog(t *testing.T) VersionLog {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	l, err := NewSQLLog(db)
	require.NoError(t, err)
	return l
}

var versionLogs = map[string]func(t *testing.T) VersionLog{
	"memory": func(t *testing.T) VersionLog { return NewMemoryLog() },
	"sql":    newSQLLog,
}

func activeCount(t *testing.T, l VersionLog) int {
	t.Helper()
	list, err := l.ListVersions(context.Background())
	require.NoError(t, err)
	n := 0
	for _, v := range list {
		if v.Active {
			n++
		}
	}
	return n
}

func TestVersionLog_MonotonicVersionsSingleActive(t *testing.T) {
	for name, newLog := range versionLogs {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := newLog(t)

			_, err := l.ReadActive(ctx)
			require.ErrorIs(t, err, ErrNotFound)

			const n = 5
			for i := 1; i <= n; i++ {
				doc, err := l.CreateVersion(ctx, content.Global{"rev": i}, []content.Page{{ID: "home", Slug: "/"}})
				require.NoError(t, err)
				require.Equal(t, i, doc.Version)
				require.True(t, doc.Active)
				require.NotEmpty(t, doc.ID)
				require.Equal(t, 1, activeCount(t, l))

				active, err := l.ReadActive(ctx)
				require.NoError(t, err)
				require.Equal(t, i, active.Version)
			}

			count, err := l.CountVersions(ctx)
			require.NoError(t, err)
			require.EqualValues(t, n, count)

			list, err := l.ListVersions(ctx)
			require.NoError(t, err)
			require.Len(t, list, n)
			require.Equal(t, n, list[0].Version)
			require.Equal(t, 1, list[0].Pages)
		})
	}
}

func TestVersionLog_ActivateAndGet(t *testing.T) {
	for name, newLog := range versionLogs {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := newLog(t)
			for i := 1; i <= 3; i++ {
				_, err := l.CreateVersion(ctx, content.Global{"title": "v"}, nil)
				require.NoError(t, err)
			}

			require.NoError(t, l.Activate(ctx, 2))
			require.Equal(t, 1, activeCount(t, l))
			active, err := l.ReadActive(ctx)
			require.NoError(t, err)
			require.Equal(t, 2, active.Version)

			require.ErrorIs(t, l.Activate(ctx, 42), ErrNotFound)
			_, err = l.GetVersion(ctx, 42)
			require.ErrorIs(t, err, ErrNotFound)

			// a new version after a rollback still continues from the max
			doc, err := l.CreateVersion(ctx, content.Global{}, nil)
			require.NoError(t, err)
			require.Equal(t, 4, doc.Version)
			require.Equal(t, 1, activeCount(t, l))

			old, err := l.GetVersion(ctx, 2)
			require.NoError(t, err)
			require.False(t, old.Active)
		})
	}
}

func TestVersionLog_ReplaceContent(t *testing.T) {
	for name, newLog := range versionLogs {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := newLog(t)
			doc, err := l.CreateVersion(ctx, content.Global{"title": "A"}, nil)
			require.NoError(t, err)

			pages := []content.Page{{ID: "about", Slug: "about", Title: "About"}}
			require.NoError(t, l.ReplaceContent(ctx, doc.Version, content.Global{"title": "B"}, pages))

			got, err := l.ReadActive(ctx)
			require.NoError(t, err)
			require.Equal(t, doc.Version, got.Version)
			require.Equal(t, "B", got.Global["title"])
			require.Equal(t, "About", got.Pages[0].Title)

			require.ErrorIs(t, l.ReplaceContent(ctx, 99, content.Global{}, nil), ErrNotFound)
		})
	}
}

// markActive sets the active flag of version without touching the others.
func markActive(t *testing.T, l VersionLog, version int) {
	t.Helper()
	switch log := l.(type) {
	case *MemoryLog:
		log.mu.Lock()
		log.store[version].Active = true
		log.mu.Unlock()
	case *SQLLog:
		err := log.db.Model(&contentVersion{}).Where("version = ?", version).Update("active", true).Error
		require.NoError(t, err)
	default:
		t.Fatalf("unsupported log %T", l)
	}
}

func TestVersionLog_ReadActivePrefersHighestVersion(t *testing.T) {
	for name, newLog := range versionLogs {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := newLog(t)
			for i := 1; i <= 3; i++ {
				_, err := l.CreateVersion(ctx, content.Global{"rev": i}, nil)
				require.NoError(t, err)
			}
			require.NoError(t, l.Activate(ctx, 1))
			markActive(t, l, 2)
			require.Equal(t, 2, activeCount(t, l))

			doc, err := l.ReadActive(ctx)
			require.NoError(t, err)
			require.Equal(t, 2, doc.Version)
			require.EqualValues(t, 2, doc.Global["rev"])
		})
	}
}
