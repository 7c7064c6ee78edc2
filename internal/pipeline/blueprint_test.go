package pipeline

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/sitesmith/internal/engine/project"
)

func TestParseBlueprint(t *testing.T) {
	tests := []struct {
		name string
		text string
		want project.Project
	}{
		{
			name: "plain json",
			text: `{"title":"Acme","theme":"warm","pages":[{"slug":"home","title":"Home","sections":[{"id":"hero","kind":"hero","props":{"headline":"Fresh bread"}}]}]}`,
			want: project.Project{
				Title: "Acme",
				Theme: "warm",
				Pages: []project.Page{{
					Slug:  "home",
					Title: "Home",
					Sections: []project.Section{
						{ID: "hero", Kind: "hero", Props: map[string]string{"headline": "Fresh bread"}},
					},
				}},
			},
		},
		{
			name: "fenced block with prose",
			text: "Here is the blueprint:\n```json\n{\"title\":\"Acme\",\"pages\":[{\"slug\":\"home\",\"title\":\"Home\"}]}\n```\nLet me know if you need changes.",
			want: project.Project{
				Title: "Acme",
				Pages: []project.Page{{Slug: "home", Title: "Home"}},
			},
		},
		{
			name: "surrounding prose without fence",
			text: `Sure! {"title":"Acme","pages":[{"slug":"home","title":"Home"}]} Hope this helps.`,
			want: project.Project{
				Title: "Acme",
				Pages: []project.Page{{Slug: "home", Title: "Home"}},
			},
		},
		{
			name: "generated slugs and ids",
			text: `{"pages":[
				{"title":"Home Page","sections":[{"type":"Hero"},{"kind":"features","props":{"count":3,"dark":true}}]},
				{"slug":"home page","title":"Copy"},
				{"title":"About Us","sections":[{"id":"x","kind":"content"},{"id":"x","kind":"content"}]}
			]}`,
			want: project.Project{
				Title: "Home Page",
				Pages: []project.Page{
					{
						Slug:  "home-page",
						Title: "Home Page",
						Sections: []project.Section{
							{ID: "hero-1", Kind: "hero"},
							{ID: "features-2", Kind: "features", Props: map[string]string{"count": "3", "dark": "true"}},
						},
					},
					{Slug: "home-page-2", Title: "Copy"},
					{
						Slug:  "about-us",
						Title: "About Us",
						Sections: []project.Section{
							{ID: "x", Kind: "content"},
							{ID: "content-2", Kind: "content"},
						},
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBlueprint(tt.text)
			if err != nil {
				t.Fatalf("ParseBlueprint() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseBlueprint() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseBlueprintErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no json", "I could not build a blueprint."},
		{"array", `[{"title":"Acme"}]`},
		{"broken json", `{"title":"Acme","pages":[`},
		{"no pages", `{"title":"Acme","pages":[]}`},
		{"no title anywhere", `{"pages":[{"slug":"home"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBlueprint(tt.text)
			if !errors.Is(err, ErrInvalidBlueprint) {
				t.Errorf("ParseBlueprint() error = %v, want ErrInvalidBlueprint", err)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Home", "home"},
		{"  About Us  ", "about-us"},
		{"Pricing & Plans!", "pricing-plans"},
		{"--already-slugged--", "already-slugged"},
		{"Café", "caf"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
