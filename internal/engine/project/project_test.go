package project

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sampleProject() Project {
	return Project{
		ID:    "p1",
		Title: "Home",
		Pages: []Page{
			{
				Slug:  "index",
				Title: "Home",
				Sections: []Section{
					{ID: "hero", Kind: "hero", Props: map[string]string{"heading": "Welcome"}},
					{ID: "features", Kind: "features"},
					{ID: "footer", Kind: "footer"},
				},
			},
		},
	}
}

func sectionIDs(p Project, slug string) []string {
	page, _ := p.Page(slug)
	ids := make([]string, len(page.Sections))
	for i, s := range page.Sections {
		ids[i] = s.ID
	}
	return ids
}

func TestEqualIgnoresUpdatedAtAndEmptyCollections(t *testing.T) {
	a := sampleProject()
	b := sampleProject()
	b.UpdatedAt = time.Now()
	b.Assets = []Asset{}

	if !Equal(a, b) {
		t.Errorf("Equal() = false, diff:\n%s", Diff(a, b))
	}

	b.Title = "Other"
	if Equal(a, b) {
		t.Error("Equal() = true for different titles")
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := sampleProject()
	clone := original.Clone()

	clone.Pages[0].Sections[0].Props["heading"] = "Changed"
	clone.Pages[0].Title = "Changed"

	if original.Pages[0].Sections[0].Props["heading"] != "Welcome" {
		t.Error("clone shares section props with original")
	}
	if original.Pages[0].Title != "Home" {
		t.Error("clone shares pages with original")
	}
}

func TestEditsDoNotMutateReceiver(t *testing.T) {
	original := sampleProject()
	before := original.Clone()

	_ = original.WithTitle("New")
	_ = original.WithTheme("dark")
	if _, err := original.SetSectionProp("index", "hero", "heading", "Hi"); err != nil {
		t.Fatal(err)
	}
	if _, err := original.MoveSection("index", 0, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := original.RemoveSection("index", "features"); err != nil {
		t.Fatal(err)
	}
	if _, err := original.AddSection("index", Section{ID: "cta", Kind: "cta"}, 1); err != nil {
		t.Fatal(err)
	}
	_ = original.AddAsset(Asset{Key: "a", URL: "u"})

	if diff := cmp.Diff(before, original); diff != "" {
		t.Errorf("receiver mutated (-before +after):\n%s", diff)
	}
}

func TestMoveSection(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"forward", 0, 2, []string{"features", "footer", "hero"}},
		{"backward", 2, 0, []string{"footer", "hero", "features"}},
		{"same", 1, 1, []string{"hero", "features", "footer"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sampleProject().MoveSection("index", tt.from, tt.to)
			if err != nil {
				t.Fatalf("MoveSection() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, sectionIDs(got, "index")); diff != "" {
				t.Errorf("order (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := sampleProject().MoveSection("index", 0, 3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("out of range error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestMoveBackToOriginIsEqual(t *testing.T) {
	p := sampleProject()
	moved, _ := p.MoveSection("index", 0, 2)
	back, _ := moved.MoveSection("index", 2, 0)

	if !Equal(p, back) {
		t.Errorf("move and move back differ:\n%s", Diff(p, back))
	}
}

func TestAddSection(t *testing.T) {
	p, err := sampleProject().AddSection("index", Section{ID: "cta", Kind: "cta"}, 1)
	if err != nil {
		t.Fatalf("AddSection() error = %v", err)
	}
	want := []string{"hero", "cta", "features", "footer"}
	if diff := cmp.Diff(want, sectionIDs(p, "index")); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}

	p, _ = p.AddSection("index", Section{ID: "end", Kind: "text"}, -1)
	if ids := sectionIDs(p, "index"); ids[len(ids)-1] != "end" {
		t.Errorf("negative index should append, got %v", ids)
	}

	if _, err := p.AddSection("index", Section{ID: "hero"}, 0); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate error = %v, want ErrDuplicateID", err)
	}
	if _, err := p.AddSection("missing", Section{ID: "x"}, 0); !errors.Is(err, ErrPageNotFound) {
		t.Errorf("missing page error = %v, want ErrPageNotFound", err)
	}
}

func TestRemoveSection(t *testing.T) {
	p, err := sampleProject().RemoveSection("index", "features")
	if err != nil {
		t.Fatalf("RemoveSection() error = %v", err)
	}
	if diff := cmp.Diff([]string{"hero", "footer"}, sectionIDs(p, "index")); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
	if _, err := p.RemoveSection("index", "features"); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("error = %v, want ErrSectionNotFound", err)
	}
}

func TestSetSectionProp(t *testing.T) {
	p, err := sampleProject().SetSectionProp("index", "features", "columns", "3")
	if err != nil {
		t.Fatalf("SetSectionProp() error = %v", err)
	}
	page, _ := p.Page("index")
	if page.Sections[1].Props["columns"] != "3" {
		t.Errorf("props = %v, want columns=3", page.Sections[1].Props)
	}
}

func TestAddPageAndAsset(t *testing.T) {
	p, err := sampleProject().AddPage(Page{Slug: "about", Title: "About"})
	if err != nil {
		t.Fatalf("AddPage() error = %v", err)
	}
	if _, err := p.AddPage(Page{Slug: "about"}); !errors.Is(err, ErrDuplicatePage) {
		t.Errorf("error = %v, want ErrDuplicatePage", err)
	}

	p = p.AddAsset(Asset{Key: "logo", URL: "/objects/logo-1.png"})
	p = p.AddAsset(Asset{Key: "logo", URL: "/objects/logo-2.png"})
	if len(p.Assets) != 1 || p.Assets[0].URL != "/objects/logo-2.png" {
		t.Errorf("assets = %+v, want single replaced asset", p.Assets)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Project)
		wantErr error
	}{
		{"valid", func(*Project) {}, nil},
		{"no title", func(p *Project) { p.Title = "  " }, ErrTitleRequired},
		{"duplicate page", func(p *Project) { p.Pages = append(p.Pages, Page{Slug: "index"}) }, ErrDuplicatePage},
		{"duplicate section", func(p *Project) {
			p.Pages[0].Sections = append(p.Pages[0].Sections, Section{ID: "hero"})
		}, ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := sampleProject()
			tt.mutate(&p)
			err := p.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCodec(t *testing.T) {
	p := sampleProject()
	p.UpdatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	data, err := Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !Equal(p, got) || !got.UpdatedAt.Equal(p.UpdatedAt) {
		t.Errorf("decoded project differs:\n%s", Diff(p, got))
	}

	if _, err := Unmarshal([]byte("{not json")); err == nil {
		t.Error("Unmarshal() of invalid json should fail")
	}
}
