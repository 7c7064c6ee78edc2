package project

import "fmt"

// WithTitle returns a copy of the project with a new title.
func (p Project) WithTitle(title string) Project {
	clone := p.Clone()
	clone.Title = title
	return clone
}

// WithTheme returns a copy of the project with a new theme.
func (p Project) WithTheme(theme string) Project {
	clone := p.Clone()
	clone.Theme = theme
	return clone
}

// AddPage returns a copy of the project with the page appended.
func (p Project) AddPage(page Page) (Project, error) {
	if _, ok := p.Page(page.Slug); ok {
		return p, fmt.Errorf("%w: %q", ErrDuplicatePage, page.Slug)
	}
	clone := p.Clone()
	clone.Pages = append(clone.Pages, page.clone())
	return clone, nil
}

// AddSection inserts a section into a page at index. A negative index appends.
func (p Project) AddSection(slug string, s Section, index int) (Project, error) {
	clone := p.Clone()
	page, err := clone.pageRef(slug)
	if err != nil {
		return p, err
	}
	for _, existing := range page.Sections {
		if existing.ID == s.ID {
			return p, fmt.Errorf("%w: %q on page %q", ErrDuplicateID, s.ID, slug)
		}
	}
	if index < 0 || index > len(page.Sections) {
		index = len(page.Sections)
	}
	page.Sections = append(page.Sections, Section{})
	copy(page.Sections[index+1:], page.Sections[index:])
	page.Sections[index] = s.clone()
	return clone, nil
}

// RemoveSection removes a section from a page.
func (p Project) RemoveSection(slug, sectionID string) (Project, error) {
	clone := p.Clone()
	page, err := clone.pageRef(slug)
	if err != nil {
		return p, err
	}
	idx := page.sectionIndex(sectionID)
	if idx < 0 {
		return p, fmt.Errorf("%w: %q on page %q", ErrSectionNotFound, sectionID, slug)
	}
	page.Sections = append(page.Sections[:idx], page.Sections[idx+1:]...)
	return clone, nil
}

// MoveSection moves the section at index from to index to within a page.
func (p Project) MoveSection(slug string, from, to int) (Project, error) {
	clone := p.Clone()
	page, err := clone.pageRef(slug)
	if err != nil {
		return p, err
	}
	n := len(page.Sections)
	if from < 0 || from >= n || to < 0 || to >= n {
		return p, fmt.Errorf("%w: move %d -> %d with %d sections", ErrIndexOutOfRange, from, to, n)
	}
	if from == to {
		return clone, nil
	}
	moved := page.Sections[from]
	if from < to {
		copy(page.Sections[from:to], page.Sections[from+1:to+1])
	} else {
		copy(page.Sections[to+1:from+1], page.Sections[to:from])
	}
	page.Sections[to] = moved
	return clone, nil
}

// SetSectionProp sets one property on a section.
func (p Project) SetSectionProp(slug, sectionID, key, value string) (Project, error) {
	clone := p.Clone()
	page, err := clone.pageRef(slug)
	if err != nil {
		return p, err
	}
	idx := page.sectionIndex(sectionID)
	if idx < 0 {
		return p, fmt.Errorf("%w: %q on page %q", ErrSectionNotFound, sectionID, slug)
	}
	section := &page.Sections[idx]
	if section.Props == nil {
		section.Props = make(map[string]string)
	}
	section.Props[key] = value
	return clone, nil
}

// AddAsset returns a copy of the project referencing the asset.
// An asset with the same key replaces the existing one.
func (p Project) AddAsset(a Asset) Project {
	clone := p.Clone()
	for i, existing := range clone.Assets {
		if existing.Key == a.Key {
			clone.Assets[i] = a
			return clone
		}
	}
	clone.Assets = append(clone.Assets, a)
	return clone
}

// pageRef returns a pointer into p.Pages. Only call on a clone.
func (p *Project) pageRef(slug string) (*Page, error) {
	for i := range p.Pages {
		if p.Pages[i].Slug == slug {
			return &p.Pages[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrPageNotFound, slug)
}

func (pg *Page) sectionIndex(id string) int {
	for i, s := range pg.Sections {
		if s.ID == id {
			return i
		}
	}
	return -1
}
