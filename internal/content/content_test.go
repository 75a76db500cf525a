package content

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageJSONKeepsUnknownFields(t *testing.T) {
	raw := `{"id":"home","slug":"/","title":"Home","hero":{"cta":"Go"},
		"sections":[{"id":"faq","type":"faq","items":[{"q":"a"}],"content":{"x":1}}]}`

	var p Page
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	require.Equal(t, "home", p.ID)
	require.Equal(t, "/", p.Slug)
	require.Contains(t, p.Extra, "hero")
	require.Len(t, p.Sections, 1)
	require.Contains(t, p.Sections[0].Extra, "items")
	require.NotContains(t, p.Sections[0].Extra, "content")

	out, err := json.Marshal(p)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	require.Equal(t, map[string]any{"cta": "Go"}, back["hero"])
	sections := back["sections"].([]any)
	require.Contains(t, sections[0].(map[string]any), "items")
}

func TestPageJSONKnownFieldsWin(t *testing.T) {
	p := Page{Slug: "about", Extra: map[string]any{"slug": "shadow", "badge": "new"}}
	out, err := json.Marshal(p)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	require.Equal(t, "about", back["slug"])
	require.Equal(t, "new", back["badge"])
	require.Equal(t, []any{}, back["sections"])
}

func TestUpsertPage(t *testing.T) {
	pages := []Page{{ID: "home", Slug: "/"}}

	pages = UpsertPage(pages, "new-slug", Page{ID: "new", Title: "First"})
	require.Len(t, pages, 2)
	require.Equal(t, "new-slug", pages[1].Slug)

	pages = UpsertPage(pages, "new-slug", Page{ID: "new", Title: "Second"})
	require.Len(t, pages, 2)
	require.Equal(t, "Second", pages[1].Title)
	require.Equal(t, "home", pages[0].ID)
}

func TestUpsertPageDoesNotMutateInput(t *testing.T) {
	pages := []Page{{ID: "home", Slug: "/", Title: "Old"}}
	out := UpsertPage(pages, "/", Page{Title: "New"})
	require.Equal(t, "Old", pages[0].Title)
	require.Equal(t, "New", out[0].Title)
}

func TestRoutePath(t *testing.T) {
	cases := map[string]string{
		"":        "/",
		"/":       "/",
		"about":   "/about",
		"/about/": "/about",
		" blog ":  "/blog",
	}
	for in, want := range cases {
		require.Equal(t, want, RoutePath(in), "slug %q", in)
	}
}

func TestValidateDocument(t *testing.T) {
	ok := &Document{Pages: []Page{
		{ID: "home", Slug: "/", Sections: []Section{{ID: "hero"}, {ID: "faq"}}},
		{ID: "about", Slug: "about"},
	}}
	require.NoError(t, ValidateDocument(ok))

	dupSlug := &Document{Pages: []Page{{ID: "a", Slug: "/"}, {ID: "b", Slug: "/"}}}
	err := ValidateDocument(dupSlug)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidContent))

	missingSlug := &Document{Pages: []Page{{ID: "a"}}}
	require.ErrorIs(t, ValidateDocument(missingSlug), ErrInvalidContent)

	dupSection := &Document{Pages: []Page{{ID: "a", Slug: "/", Sections: []Section{{ID: "x"}, {ID: "x"}}}}}
	require.ErrorIs(t, ValidateDocument(dupSection), ErrInvalidContent)

	dupPageID := &Document{Pages: []Page{{ID: "a", Slug: "/"}, {ID: "a", Slug: "about"}}}
	err = ValidateDocument(dupPageID)
	require.ErrorIs(t, err, ErrInvalidContent)
	require.ErrorContains(t, err, "must not repeat an id")

	require.ErrorIs(t, ValidateDocument(nil), ErrInvalidContent)
}

func TestValidateDocument_IDsAreOptional(t *testing.T) {
	doc := &Document{Pages: []Page{
		{Slug: "/", Sections: []Section{{Type: "hero"}, {Type: "faq"}, {ID: "cta"}}},
		{Slug: "about", Sections: []Section{{}, {}}},
		{ID: "contact", Slug: "contact"},
	}}
	require.NoError(t, ValidateDocument(doc))
	require.NoError(t, ValidatePage(&doc.Pages[1]))

	dup := &Page{Slug: "/", Sections: []Section{{}, {ID: "x"}, {ID: "x"}}}
	require.ErrorIs(t, ValidatePage(dup), ErrInvalidContent)
}

func TestPageNotFoundErrorMatchesSentinel(t *testing.T) {
	err := error(&PageNotFoundError{Slug: "missing"})
	require.ErrorIs(t, err, ErrPageNotFound)
	require.Contains(t, err.Error(), "missing")
}

func TestDocumentClone(t *testing.T) {
	doc := &Document{Version: 3, Global: Global{"title": "Acme"}, Pages: []Page{{Slug: "/"}}}
	c, err := doc.Clone()
	require.NoError(t, err)
	c.Global["title"] = "Other"
	c.Pages[0].Slug = "x"
	require.Equal(t, "Acme", doc.Global["title"])
	require.Equal(t, "/", doc.Pages[0].Slug)
	require.Equal(t, 3, c.Version)
}
