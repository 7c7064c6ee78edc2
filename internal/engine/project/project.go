// Package project defines the editable project document.
//
// A Project is a whole-document snapshot: every edit produces a new value and
// never mutates the old one, so snapshots can be kept in the undo history and
// compared structurally.
package project

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Validation errors.
var (
	ErrTitleRequired   = errors.New("project title is required")
	ErrDuplicatePage   = errors.New("duplicate page slug")
	ErrDuplicateID     = errors.New("duplicate section id")
	ErrPageNotFound    = errors.New("page not found")
	ErrSectionNotFound = errors.New("section not found")
	ErrIndexOutOfRange = errors.New("section index out of range")
)

// Project is the editable site reconstructed from a source website.
type Project struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Theme       string    `json:"theme,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	Brief       string    `json:"brief,omitempty"`
	DesignGuide string    `json:"design_guide,omitempty"`
	Pages       []Page    `json:"pages"`
	Assets      []Asset   `json:"assets,omitempty"`
	Published   bool      `json:"published"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Page is one routable page of the site.
type Page struct {
	Slug     string    `json:"slug"`
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Section is a block on a page (hero, features, gallery, footer, ...).
type Section struct {
	ID    string            `json:"id"`
	Kind  string            `json:"kind"`
	Props map[string]string `json:"props,omitempty"`
}

// Asset is an uploaded file referenced by the project.
type Asset struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// equalOpts treat nil and empty collections alike and ignore bookkeeping fields.
var equalOpts = cmp.Options{
	cmpopts.EquateEmpty(),
	cmpopts.IgnoreFields(Project{}, "UpdatedAt"),
}

// Equal reports whether two projects have the same content.
func Equal(a, b Project) bool {
	return cmp.Equal(a, b, equalOpts)
}

// Diff describes how b differs from a, or returns "" when they are equal.
func Diff(a, b Project) string {
	return cmp.Diff(a, b, equalOpts)
}

// Clone returns a deep copy of the project.
func (p Project) Clone() Project {
	clone := p
	if p.Pages != nil {
		clone.Pages = make([]Page, len(p.Pages))
		for i, page := range p.Pages {
			clone.Pages[i] = page.clone()
		}
	}
	if p.Assets != nil {
		clone.Assets = make([]Asset, len(p.Assets))
		copy(clone.Assets, p.Assets)
	}
	return clone
}

func (pg Page) clone() Page {
	clone := pg
	if pg.Sections != nil {
		clone.Sections = make([]Section, len(pg.Sections))
		for i, s := range pg.Sections {
			clone.Sections[i] = s.clone()
		}
	}
	return clone
}

func (s Section) clone() Section {
	clone := s
	if s.Props != nil {
		clone.Props = make(map[string]string, len(s.Props))
		for k, v := range s.Props {
			clone.Props[k] = v
		}
	}
	return clone
}

// Page returns the page with the given slug.
func (p Project) Page(slug string) (Page, bool) {
	for _, page := range p.Pages {
		if page.Slug == slug {
			return page, true
		}
	}
	return Page{}, false
}

// SectionCount returns the number of sections across all pages.
func (p Project) SectionCount() int {
	n := 0
	for _, page := range p.Pages {
		n += len(page.Sections)
	}
	return n
}

// Validate checks structural invariants of the project.
func (p Project) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrTitleRequired
	}

	slugs := make(map[string]bool, len(p.Pages))
	for _, page := range p.Pages {
		if slugs[page.Slug] {
			return fmt.Errorf("%w: %q", ErrDuplicatePage, page.Slug)
		}
		slugs[page.Slug] = true

		ids := make(map[string]bool, len(page.Sections))
		for _, s := range page.Sections {
			if ids[s.ID] {
				return fmt.Errorf("%w: %q on page %q", ErrDuplicateID, s.ID, page.Slug)
			}
			ids[s.ID] = true
		}
	}
	return nil
}
