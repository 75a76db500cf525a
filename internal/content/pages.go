package content

import "strings"

// FindPage returns the index of the page with the given slug, or -1.
func FindPage(pages []Page, slug string) int {
	for i := range pages {
		if pages[i].Slug == slug {
			return i
		}
	}
	return -1
}

// UpsertPage replaces the page with the given slug, or appends it when no page
// has that slug. The page is replaced whole, never merged field by field.
func UpsertPage(pages []Page, slug string, page Page) []Page {
	page.Slug = slug
	if i := FindPage(pages, slug); i >= 0 {
		out := make([]Page, len(pages))
		copy(out, pages)
		out[i] = page
		return out
	}
	out := make([]Page, 0, len(pages)+1)
	out = append(out, pages...)
	return append(out, page)
}

// RoutePath turns a page slug into the route path that serves it.
// "" and "/" map to the root path; "about" and "/about/" map to "/about".
func RoutePath(slug string) string {
	s := strings.Trim(strings.TrimSpace(slug), "/")
	if s == "" {
		return "/"
	}
	return "/" + s
}
