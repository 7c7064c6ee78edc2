package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/sitesmith/internal/auth"
	"github.com/dshills/sitesmith/internal/pipeline"
	"github.com/dshills/sitesmith/internal/storage"
)

// Published is the data returned when a project is published.
type Published struct {
	ProjectID   string    `json:"project_id"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// PublishProject marks a project as published. Only the owner may publish.
func (a *Actions) PublishProject(ctx context.Context, id auth.Identity, projectID string) Result {
	if _, msg := a.loadProject(ctx, id, projectID, accessOwner); msg != "" {
		return Fail(msg)
	}
	at := a.now().UTC()
	err := a.store.PublishProject(ctx, projectID, at)
	if errors.Is(err, storage.ErrNotFound) {
		return Fail(MsgProjectNotFound)
	}
	if err != nil {
		a.logger.Error("publish failed", zap.String("project", projectID), zap.Error(err))
		return Fail(MsgSomethingWentWrong)
	}
	a.logger.Info("project published", zap.String("project", projectID))
	return OK(Published{ProjectID: projectID, URL: a.cfg.PublicURL + "/p/" + projectID, PublishedAt: at})
}

// PublishedProject returns a published project for public viewing.
func (a *Actions) PublishedProject(ctx context.Context, projectID string) Result {
	p, err := a.store.GetProject(ctx, projectID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !p.Published) {
		return Fail(MsgProjectNotFound)
	}
	if err != nil {
		a.logger.Error("load published project failed", zap.String("project", projectID), zap.Error(err))
		return Fail(MsgSomethingWentWrong)
	}
	return OK(p)
}

// RebuildSite reconstructs sourceURL into a new project owned by the caller
// and saves it.
func (a *Actions) RebuildSite(ctx context.Context, id auth.Identity, sourceURL string) Result {
	if id.UserID == "" {
		return Fail(MsgSignInRequired)
	}
	if _, err := pipeline.ParseSourceURL(sourceURL); err != nil {
		return Fail(MsgInvalidURL)
	}
	if a.rebuild == nil {
		return Fail(MsgRebuildUnavailable)
	}

	res, err := a.rebuild.Run(ctx, sourceURL)
	if err != nil {
		a.logger.Error("rebuild failed",
			zap.String("user", id.UserID),
			zap.String("url", sourceURL),
			zap.Error(err),
		)
		if stage := pipeline.StageOf(err); stage != "" {
			return Fail(fmt.Sprintf("%s at the %s stage", rebuildFailedMsgPrefix, stage))
		}
		return Fail(rebuildFailedMsgPrefix)
	}

	p := res.Project
	p.ID = a.token()
	p.OwnerID = id.UserID
	p.UpdatedAt = a.now().UTC()
	if err := a.store.SaveProject(ctx, p); err != nil {
		a.logger.Error("save rebuilt project failed", zap.String("project", p.ID), zap.Error(err))
		return Fail(MsgSomethingWentWrong)
	}
	a.logger.Info("site rebuilt",
		zap.String("project", p.ID),
		zap.String("url", sourceURL),
		zap.Duration("duration", res.Duration),
	)
	return OK(p)
}
