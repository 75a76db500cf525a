package content

import (
	"encoding/json"
	"time"
)

// Global holds site-wide content (navigation, header, footer, contact info).
// Keys are open; nothing in this service reads them.
type Global map[string]any

// Document is one snapshot of all site content. The flat-file backend only
// persists Global and Pages; Version, Active and Timestamp are set by the
// versioned backends.
type Document struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	Version   int       `json:"version,omitempty" bson:"version"`
	Active    bool      `json:"active,omitempty" bson:"active"`
	Timestamp time.Time `json:"timestamp,omitzero" bson:"timestamp"`
	Global    Global    `json:"global" bson:"global"`
	Pages     []Page    `json:"pages" bson:"pages" validate:"unique=Slug,unique_ids,dive"`
}

// Meta is the SEO text of a page.
type Meta struct {
	Title       string `json:"title,omitempty" bson:"title,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

// Page is a routed page made of ordered sections. Fields the service does not
// read are kept in Extra and written back untouched.
type Page struct {
	ID       string         `json:"id,omitempty" bson:"id,omitempty"`
	Slug     string         `json:"slug" bson:"slug" validate:"required"`
	Title    string         `json:"title,omitempty" bson:"title,omitempty"`
	Meta     *Meta          `json:"meta,omitempty" bson:"meta,omitempty"`
	Sections []Section      `json:"sections" bson:"sections" validate:"unique_ids,dive"`
	Extra    map[string]any `json:"-" bson:",inline"`
}

// Section is a typed block of a page. Its payload shape depends on Type and is
// carried opaquely in Content and Extra (tiles, steps, testimonials, ...).
type Section struct {
	ID       string         `json:"id,omitempty" bson:"id,omitempty"`
	Type     string         `json:"type,omitempty" bson:"type,omitempty"`
	Title    string         `json:"title,omitempty" bson:"title,omitempty"`
	Subtitle string         `json:"subtitle,omitempty" bson:"subtitle,omitempty"`
	Content  any            `json:"content,omitempty" bson:"content,omitempty"`
	Extra    map[string]any `json:"-" bson:",inline"`
}

// VersionInfo summarises one record of the version history.
type VersionInfo struct {
	Version   int       `json:"version"`
	Active    bool      `json:"active"`
	Timestamp time.Time `json:"timestamp"`
	Pages     int       `json:"pages"`
}

var (
	pageKeys    = []string{"id", "slug", "title", "meta", "sections"}
	sectionKeys = []string{"id", "type", "title", "subtitle", "content"}
)

func (p Page) MarshalJSON() ([]byte, error) {
	type plain Page
	if p.Sections == nil {
		p.Sections = []Section{}
	}
	b, err := json.Marshal(plain(p))
	if err != nil {
		return nil, err
	}
	return mergeExtra(b, p.Extra)
}

func (p *Page) UnmarshalJSON(b []byte) error {
	type plain Page
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	extra, err := extraFields(b, pageKeys)
	if err != nil {
		return err
	}
	v.Extra = extra
	*p = Page(v)
	return nil
}

func (s Section) MarshalJSON() ([]byte, error) {
	type plain Section
	b, err := json.Marshal(plain(s))
	if err != nil {
		return nil, err
	}
	return mergeExtra(b, s.Extra)
}

func (s *Section) UnmarshalJSON(b []byte) error {
	type plain Section
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	extra, err := extraFields(b, sectionKeys)
	if err != nil {
		return err
	}
	v.Extra = extra
	*s = Section(v)
	return nil
}

// mergeExtra adds extra keys to an encoded object. Known fields win on conflict.
func mergeExtra(b []byte, extra map[string]any) ([]byte, error) {
	if len(extra) == 0 {
		return b, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := fields[k]; ok {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		fields[k] = raw
	}
	return json.Marshal(fields)
}

func extraFields(b []byte, known []string) (map[string]any, error) {
	var all map[string]any
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() (*Document, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out Document
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Info returns the history summary of the document.
func (d *Document) Info() VersionInfo {
	return VersionInfo{Version: d.Version, Active: d.Active, Timestamp: d.Timestamp, Pages: len(d.Pages)}
}
