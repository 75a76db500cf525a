package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"github.com/stretchr/testify/require"
)

func TestVersioned_WholeDocumentCreatesVersions(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	var archived []int
	v := NewVersioned(log, "memory", nil, func(ctx context.Context, doc *content.Document) error {
		archived = append(archived, doc.Version)
		return errors.New("archive offline")
	})

	for i := 0; i < 3; i++ {
		_, err := v.WriteComplete(ctx, &content.Document{Global: content.Global{"i": i}})
		require.NoError(t, err, "hook errors must not fail the write")
	}
	require.Equal(t, []int{1, 2, 3}, archived)
	n, err := log.CountVersions(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}

func TestVersioned_IncrementalWritesMergeIntoActive(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	v := NewVersioned(log, "memory", nil)

	// first incremental write bootstraps version 1
	_, err := v.WritePage(ctx, "/", content.Page{ID: "home"})
	require.NoError(t, err)
	_, err = v.WriteGlobal(ctx, content.Global{"title": "Acme"})
	require.NoError(t, err)
	_, err = v.WritePage(ctx, "about", content.Page{ID: "about"})
	require.NoError(t, err)
	saved, err := v.WritePage(ctx, "about", content.Page{ID: "about", Title: "About us"})
	require.NoError(t, err)
	require.Equal(t, "About us", saved.Title)

	n, err := log.CountVersions(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	doc, err := v.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, "Acme", doc.Global["title"])
	require.Len(t, doc.Pages, 2)
	require.Equal(t, "About us", doc.Pages[1].Title)
}

func TestVersioned_GlobalWriteWithoutContentCreatesFirstVersion(t *testing.T) {
	ctx := context.Background()
	v := NewVersioned(NewMemoryLog(), "memory", nil)
	doc, err := v.WriteGlobal(ctx, content.Global{"title": "Acme"})
	require.NoError(t, err)
	require.Equal(t, 1, doc.Version)
	require.Empty(t, doc.Pages)
}

func TestVersioned_HooksSeeMergedContent(t *testing.T) {
	ctx := context.Background()
	archive := map[int]*content.Document{}
	v := NewVersioned(NewMemoryLog(), "memory", nil, func(ctx context.Context, doc *content.Document) error {
		c, err := doc.Clone()
		if err != nil {
			return err
		}
		archive[doc.Version] = c
		return nil
	})

	_, err := v.WriteComplete(ctx, &content.Document{Global: content.Global{"title": "Acme"}, Pages: []content.Page{{ID: "home", Slug: "/"}}})
	require.NoError(t, err)
	_, err = v.WritePage(ctx, "about", content.Page{ID: "about", Title: "About"})
	require.NoError(t, err)
	_, err = v.WriteGlobal(ctx, content.Global{"title": "Acme Inc"})
	require.NoError(t, err)

	live, err := v.Read(ctx)
	require.NoError(t, err)
	require.Len(t, archive, 1)
	require.Equal(t, live.Version, archive[1].Version)
	require.Len(t, archive[1].Pages, 2)
	require.Equal(t, live.Pages, archive[1].Pages)
	require.Equal(t, "Acme Inc", archive[1].Global["title"])
}
