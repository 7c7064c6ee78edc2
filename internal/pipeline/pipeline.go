// Package pipeline reconstructs a website into an editable project.
//
// Run executes four steps in order, each under its own tracing span:
//
//	fetch      download the source page and extract its text
//	brief      model A summarizes the content into a content brief
//	design     model B turns the brief into a design guide
//	blueprint  model C assembles pages and sections as JSON
//
// The first failing step stops the run and is reported as a *StageError.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dshills/sitesmith/internal/engine/project"
)

const tracerName = "github.com/dshills/sitesmith/internal/pipeline"

// Stage names a pipeline step.
type Stage string

// Pipeline stages in execution order.
const (
	StageFetch     Stage = "fetch"
	StageBrief     Stage = "brief"
	StageDesign    Stage = "design"
	StageBlueprint Stage = "blueprint"
)

// StageError reports which stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the failed stage of err, or "" if err is not a StageError.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Models names the model used by each generation stage.
type Models struct {
	Brief     string
	Design    string
	Blueprint string
}

// Result is the output of a successful run.
type Result struct {
	Source      Page            `json:"source"`
	Brief       string          `json:"brief"`
	DesignGuide string          `json:"design_guide"`
	Project     project.Project `json:"project"`
	Duration    time.Duration   `json:"duration"`
}

// Pipeline runs the reconstruction stages.
type Pipeline struct {
	fetcher PageFetcher
	gen     Generator
	models  Models
	tracer  trace.Tracer
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTracer sets the tracer. The global provider is used by default.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides the clock used for durations and timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a pipeline.
func New(fetcher PageFetcher, gen Generator, models Models, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher: fetcher,
		gen:     gen,
		models:  models,
		tracer:  otel.Tracer(tracerName),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run reconstructs the site at sourceURL. The returned project has no ID or
// owner; the caller assigns them.
func (p *Pipeline) Run(ctx context.Context, sourceURL string) (Result, error) {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("source.url", sourceURL)))
	defer span.End()

	var res Result
	err := p.stage(ctx, StageFetch, "", func(ctx context.Context) error {
		page, err := p.fetcher.Fetch(ctx, sourceURL)
		res.Source = page
		return err
	})
	if err == nil {
		err = p.stage(ctx, StageBrief, p.models.Brief, func(ctx context.Context) error {
			brief, err := p.gen.Generate(ctx, p.models.Brief, BriefPrompt(res.Source))
			res.Brief = brief
			return err
		})
	}
	if err == nil {
		err = p.stage(ctx, StageDesign, p.models.Design, func(ctx context.Context) error {
			guide, err := p.gen.Generate(ctx, p.models.Design, DesignPrompt(res.Brief))
			res.DesignGuide = guide
			return err
		})
	}
	if err == nil {
		err = p.stage(ctx, StageBlueprint, p.models.Blueprint, func(ctx context.Context) error {
			text, err := p.gen.Generate(ctx, p.models.Blueprint, BlueprintPrompt(res.Source, res.Brief, res.DesignGuide))
			if err != nil {
				return err
			}
			proj, err := ParseBlueprint(text)
			if err != nil {
				return err
			}
			proj.SourceURL = res.Source.URL
			proj.Brief = res.Brief
			proj.DesignGuide = res.DesignGuide
			proj.UpdatedAt = p.now()
			res.Project = proj
			return nil
		})
	}

	res.Duration = p.now().Sub(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(StageOf(err)))
		p.logger.Warn("pipeline failed",
			zap.String("url", sourceURL),
			zap.String("stage", string(StageOf(err))),
			zap.Error(err),
		)
		return Result{}, err
	}

	span.SetStatus(codes.Ok, "")
	p.logger.Info("pipeline finished",
		zap.String("url", sourceURL),
		zap.Int("pages", len(res.Project.Pages)),
		zap.Int("sections", res.Project.SectionCount()),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) stage(ctx context.Context, stage Stage, model string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: stage, Err: err}
	}

	ctx, span := p.tracer.Start(ctx, "pipeline."+string(stage))
	defer span.End()
	if model != "" {
		span.SetAttributes(attribute.String("model", model))
	}

	started := p.now()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &StageError{Stage: stage, Err: err}
	}
	p.logger.Debug("stage done",
		zap.String("stage", string(stage)),
		zap.String("model", model),
		zap.Duration("duration", p.now().Sub(started)),
	)
	return nil
}
