package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/sitesmith/internal/engine/project"
)

// ErrInvalidBlueprint is returned when the blueprint is not usable JSON.
var ErrInvalidBlueprint = errors.New("invalid blueprint")

// ParseBlueprint turns a blueprint response into a project. Surrounding prose
// and markdown code fences are ignored. Missing slugs and section IDs are
// generated; every prop value is kept as a string.
func ParseBlueprint(text string) (project.Project, error) {
	raw := extractJSON(text)
	if raw == "" || !gjson.Valid(raw) {
		return project.Project{}, fmt.Errorf("%w: no JSON object found", ErrInvalidBlueprint)
	}
	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return project.Project{}, fmt.Errorf("%w: top level is not an object", ErrInvalidBlueprint)
	}

	p := project.Project{
		Title: strings.TrimSpace(doc.Get("title").String()),
		Theme: strings.TrimSpace(doc.Get("theme").String()),
	}

	slugs := make(map[string]int)
	doc.Get("pages").ForEach(func(_, pv gjson.Result) bool {
		page := project.Page{
			Title: strings.TrimSpace(pv.Get("title").String()),
			Slug:  slugify(pv.Get("slug").String()),
		}
		if page.Slug == "" {
			page.Slug = slugify(page.Title)
		}
		if page.Slug == "" {
			page.Slug = "page"
		}
		if n := slugs[page.Slug]; n > 0 {
			slugs[page.Slug] = n + 1
			page.Slug = fmt.Sprintf("%s-%d", page.Slug, n+1)
		} else {
			slugs[page.Slug] = 1
		}

		ids := make(map[string]bool)
		pv.Get("sections").ForEach(func(_, sv gjson.Result) bool {
			kind := sv.Get("kind").String()
			if kind == "" {
				kind = sv.Get("type").String()
			}
			s := project.Section{
				ID:   slugify(sv.Get("id").String()),
				Kind: strings.ToLower(strings.TrimSpace(kind)),
			}
			if s.Kind == "" {
				s.Kind = "content"
			}
			if s.ID == "" || ids[s.ID] {
				s.ID = fmt.Sprintf("%s-%d", s.Kind, len(page.Sections)+1)
			}
			ids[s.ID] = true

			props := sv.Get("props")
			if props.IsObject() {
				s.Props = make(map[string]string)
				props.ForEach(func(k, v gjson.Result) bool {
					s.Props[k.String()] = v.String()
					return true
				})
			}
			page.Sections = append(page.Sections, s)
			return true
		})

		p.Pages = append(p.Pages, page)
		return true
	})

	if len(p.Pages) == 0 {
		return project.Project{}, fmt.Errorf("%w: no pages", ErrInvalidBlueprint)
	}
	if p.Title == "" {
		p.Title = p.Pages[0].Title
	}
	if err := p.Validate(); err != nil {
		return project.Project{}, fmt.Errorf("%w: %v", ErrInvalidBlueprint, err)
	}
	return p, nil
}

// extractJSON returns the first fenced block if there is one, otherwise the
// span from the first '{' to the last '}'.
func extractJSON(text string) string {
	if start := strings.Index(text, "```"); start >= 0 {
		body := text[start+3:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end >= 0 {
			return strings.TrimSpace(body[:end])
		}
	}
	first := strings.IndexByte(text, '{')
	last := strings.LastIndexByte(text, '}')
	if first < 0 || last < first {
		return ""
	}
	return text[first : last+1]
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
