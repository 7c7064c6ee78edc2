package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
)

type fakeFetcher struct {
	page Page
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (Page, error) {
	if f.err != nil {
		return Page{}, f.err
	}
	p := f.page
	p.URL = rawURL
	return p, nil
}

type call struct {
	model  string
	prompt string
}

type fakeGenerator struct {
	mu        sync.Mutex
	calls     []call
	responses map[string]string
	failOn    string
	err       error
}

func (g *fakeGenerator) Generate(_ context.Context, model, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call{model: model, prompt: prompt})
	if model == g.failOn {
		return "", g.err
	}
	return g.responses[model], nil
}

var testModels = Models{Brief: "brief-model", Design: "design-model", Blueprint: "blueprint-model"}

const testBlueprint = "```json\n" +
	`{"title":"Acme Bakery","theme":"warm","pages":[{"slug":"home","title":"Home","sections":[{"id":"hero","kind":"hero"}]}]}` +
	"\n```"

func newTestPipeline(t *testing.T, f PageFetcher, g Generator, now time.Time) *Pipeline {
	t.Helper()
	return New(f, g, testModels,
		WithTracer(noop.NewTracerProvider().Tracer("test")),
		WithLogger(zaptest.NewLogger(t)),
		WithClock(func() time.Time { return now }),
	)
}

func TestPipelineRun(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{page: Page{
		Title:      "Acme Bakery",
		Headings:   []string{"Welcome"},
		Paragraphs: []string{"We bake bread."},
	}}
	gen := &fakeGenerator{responses: map[string]string{
		"brief-model":     "BRIEF: a neighbourhood bakery",
		"design-model":    "GUIDE: warm palette",
		"blueprint-model": testBlueprint,
	}}

	res, err := newTestPipeline(t, fetcher, gen, now).Run(context.Background(), "https://acme.test")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantModels := []string{"brief-model", "design-model", "blueprint-model"}
	if len(gen.calls) != len(wantModels) {
		t.Fatalf("Generate called %d times, want %d", len(gen.calls), len(wantModels))
	}
	for i, m := range wantModels {
		if gen.calls[i].model != m {
			t.Errorf("call %d model = %q, want %q", i, gen.calls[i].model, m)
		}
	}
	if !strings.Contains(gen.calls[0].prompt, "We bake bread.") {
		t.Errorf("brief prompt does not contain page text:\n%s", gen.calls[0].prompt)
	}
	if !strings.Contains(gen.calls[1].prompt, "BRIEF: a neighbourhood bakery") {
		t.Errorf("design prompt does not contain the brief:\n%s", gen.calls[1].prompt)
	}
	if !strings.Contains(gen.calls[2].prompt, "GUIDE: warm palette") {
		t.Errorf("blueprint prompt does not contain the design guide:\n%s", gen.calls[2].prompt)
	}

	p := res.Project
	if p.Title != "Acme Bakery" || p.Theme != "warm" {
		t.Errorf("Project title/theme = %q/%q, want %q/%q", p.Title, p.Theme, "Acme Bakery", "warm")
	}
	if p.SourceURL != "https://acme.test" {
		t.Errorf("SourceURL = %q, want %q", p.SourceURL, "https://acme.test")
	}
	if p.Brief != res.Brief || p.DesignGuide != res.DesignGuide {
		t.Errorf("Project brief/guide not copied from the result")
	}
	if !p.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", p.UpdatedAt, now)
	}
	if p.ID != "" || p.OwnerID != "" {
		t.Errorf("ID/OwnerID = %q/%q, want empty", p.ID, p.OwnerID)
	}
	if res.Source.Title != "Acme Bakery" {
		t.Errorf("Source.Title = %q, want %q", res.Source.Title, "Acme Bakery")
	}
}

func TestPipelineStageErrors(t *testing.T) {
	errBoom := errors.New("boom")
	responses := map[string]string{
		"brief-model":     "brief",
		"design-model":    "guide",
		"blueprint-model": testBlueprint,
	}

	tests := []struct {
		name      string
		fetcher   *fakeFetcher
		failOn    string
		blueprint string
		wantStage Stage
		wantErr   error
		wantCalls int
	}{
		{"fetch", &fakeFetcher{err: errBoom}, "", "", StageFetch, errBoom, 0},
		{"brief", &fakeFetcher{}, "brief-model", "", StageBrief, errBoom, 1},
		{"design", &fakeFetcher{}, "design-model", "", StageDesign, errBoom, 2},
		{"blueprint generate", &fakeFetcher{}, "blueprint-model", "", StageBlueprint, errBoom, 3},
		{"blueprint parse", &fakeFetcher{}, "", "no json at all", StageBlueprint, ErrInvalidBlueprint, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := make(map[string]string, len(responses))
			for k, v := range responses {
				r[k] = v
			}
			if tt.blueprint != "" {
				r["blueprint-model"] = tt.blueprint
			}
			gen := &fakeGenerator{responses: r, failOn: tt.failOn, err: errBoom}

			res, err := newTestPipeline(t, tt.fetcher, gen, time.Now()).Run(context.Background(), "https://acme.test")
			if err == nil {
				t.Fatal("Run() error = nil, want error")
			}

			var se *StageError
			if !errors.As(err, &se) {
				t.Fatalf("Run() error = %T, want *StageError", err)
			}
			if se.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", se.Stage, tt.wantStage)
			}
			if StageOf(err) != tt.wantStage {
				t.Errorf("StageOf() = %q, want %q", StageOf(err), tt.wantStage)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Run() error = %v, want wrapping %v", err, tt.wantErr)
			}
			if len(gen.calls) != tt.wantCalls {
				t.Errorf("Generate called %d times, want %d", len(gen.calls), tt.wantCalls)
			}
			if res.Project.Title != "" {
				t.Errorf("Result not empty on failure: %+v", res.Project)
			}
		})
	}
}

func TestPipelineCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &fakeGenerator{}
	_, err := newTestPipeline(t, &fakeFetcher{}, gen, time.Now()).Run(ctx, "https://acme.test")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if StageOf(err) != StageFetch {
		t.Errorf("StageOf() = %q, want %q", StageOf(err), StageFetch)
	}
	if len(gen.calls) != 0 {
		t.Errorf("Generate called %d times, want 0", len(gen.calls))
	}
}

func TestStageError(t *testing.T) {
	err := &StageError{Stage: StageDesign, Err: errors.New("quota exceeded")}
	if got, want := err.Error(), "design stage: quota exceeded"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if StageOf(errors.New("plain")) != "" {
		t.Errorf("StageOf(plain) should be empty")
	}
}

func TestPrompts(t *testing.T) {
	page := Page{
		URL:   "https://acme.test",
		Title: "Acme",
		Links: []Link{{Text: "About", Href: "https://acme.test/about"}},
	}
	for i := 0; i < maxPromptParagraphs+10; i++ {
		page.Paragraphs = append(page.Paragraphs, "para")
	}

	brief := BriefPrompt(page)
	if !strings.Contains(brief, "About (https://acme.test/about)") {
		t.Errorf("BriefPrompt missing navigation:\n%s", brief)
	}
	if got := strings.Count(brief, "para\n"); got != maxPromptParagraphs {
		t.Errorf("BriefPrompt paragraphs = %d, want %d", got, maxPromptParagraphs)
	}

	bp := BlueprintPrompt(page, "the brief", "the guide")
	for _, want := range []string{`"pages"`, "the brief", "the guide", "https://acme.test"} {
		if !strings.Contains(bp, want) {
			t.Errorf("BlueprintPrompt missing %q", want)
		}
	}
}
