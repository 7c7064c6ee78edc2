package action

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/sitesmith/internal/auth"
	"github.com/dshills/sitesmith/internal/engine/project"
	"github.com/dshills/sitesmith/internal/storage"
)

// SharedLink is the data returned when a share link is created.
type SharedLink struct {
	storage.ShareLink
	URL string `json:"url"`
}

// SharedProject is the read-only view behind a share link.
type SharedProject struct {
	Project   project.Project `json:"project"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// SentInvitation is the data returned when an invitation is created.
type SentInvitation struct {
	storage.Invitation
	URL string `json:"url"`
}

// CreateShareLink creates a read-only link to a project. Owners and
// collaborators may share.
func (a *Actions) CreateShareLink(ctx context.Context, id auth.Identity, projectID string) Result {
	if _, msg := a.loadProject(ctx, id, projectID, accessEditor); msg != "" {
		return Fail(msg)
	}

	now := a.now().UTC()
	link := storage.ShareLink{
		Token:     a.token(),
		ProjectID: projectID,
		CreatedBy: id.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(a.cfg.LinkTTL),
	}
	if err := a.store.CreateShareLink(ctx, link); err != nil {
		a.logger.Error("create share link failed", zap.String("project", projectID), zap.Error(err))
		return Fail(MsgSomethingWentWrong)
	}
	return OK(SharedLink{ShareLink: link, URL: a.cfg.PublicURL + "/s/" + link.Token})
}

// ResolveShareLink returns the project behind a share link.
func (a *Actions) ResolveShareLink(ctx context.Context, token string) Result {
	if token == "" {
		return Fail(MsgShareLinkNotFound)
	}
	link, err := a.store.ResolveShareLink(ctx, token, a.now().UTC())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return Fail(MsgShareLinkNotFound)
	case errors.Is(err, storage.ErrExpired):
		return Fail(MsgShareLinkExpired)
	case err != nil:
		a.logger.Error("resolve share link failed", zap.Error(err))
		return Fail(MsgSomethingWentWrong)
	}

	p, err := a.store.GetProject(ctx, link.ProjectID)
	if errors.Is(err, storage.ErrNotFound) {
		return Fail(MsgShareLinkNotFound)
	}
	if err != nil {
		a.logger.Error("load shared project failed", zap.String("project", link.ProjectID), zap.Error(err))
		return Fail(MsgSomethingWentWrong)
	}
	return OK(SharedProject{Project: p, ExpiresAt: link.ExpiresAt})
}

// InviteCollaborator invites an email address to edit a project. Only the
// owner may invite.
func (a *Actions) InviteCollaborator(ctx context.Context, id auth.Identity, projectID, rawEmail string) Result {
	email, ok := NormalizeEmail(rawEmail)
	if !ok {
		return Fail(MsgInvalidEmail)
	}
	if _, msg := a.loadProject(ctx, id, projectID, accessOwner); msg != "" {
		return Fail(msg)
	}

	now := a.now().UTC()
	inv := storage.Invitation{
		Token:     a.token(),
		ProjectID: projectID,
		Email:     email,
		InvitedBy: id.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(a.cfg.InvitationTTL),
	}
	if err := a.store.CreateInvitation(ctx, inv); err != nil {
		a.logger.Error("create invitation failed", zap.String("project", projectID), zap.Error(err))
		return Fail(MsgSomethingWentWrong)
	}
	a.logger.Info("collaborator invited", zap.String("project", projectID), zap.String("by", id.UserID))
	return OK(SentInvitation{Invitation: inv, URL: a.cfg.PublicURL + "/invitations/" + inv.Token})
}

// AcceptInvitation adds the caller as a collaborator. The caller's email must
// match the invited address.
func (a *Actions) AcceptInvitation(ctx context.Context, id auth.Identity, token string) Result {
	if id.UserID == "" {
		return Fail(MsgSignInRequired)
	}
	inv, err := a.store.GetInvitation(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return Fail(MsgInvitationNotFound)
	}
	if err != nil {
		a.logger.Error("load invitation failed", zap.Error(err))
		return Fail(MsgSomethingWentWrong)
	}
	if email, _ := NormalizeEmail(id.Email); email != inv.Email {
		return Fail(MsgInvitationMismatch)
	}

	inv, err = a.store.AcceptInvitation(ctx, token, id.UserID, a.now().UTC())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return Fail(MsgInvitationNotFound)
	case errors.Is(err, storage.ErrExpired):
		return Fail(MsgInvitationExpired)
	case errors.Is(err, storage.ErrConflict):
		return Fail(MsgInvitationUsed)
	case err != nil:
		a.logger.Error("accept invitation failed", zap.String("user", id.UserID), zap.Error(err))
		return Fail(MsgSomethingWentWrong)
	}
	a.logger.Info("invitation accepted", zap.String("project", inv.ProjectID), zap.String("user", id.UserID))
	return OK(inv)
}

// ListCollaborators lists a project's collaborators. Owners and
// collaborators may list.
func (a *Actions) ListCollaborators(ctx context.Context, id auth.Identity, projectID string) Result {
	if _, msg := a.loadProject(ctx, id, projectID, accessEditor); msg != "" {
		return Fail(msg)
	}
	list, err := a.store.ListCollaborators(ctx, projectID)
	if err != nil {
		a.logger.Error("list collaborators failed", zap.String("project", projectID), zap.Error(err))
		return Fail(MsgSomethingWentWrong)
	}
	if list == nil {
		list = []storage.Collaborator{}
	}
	return OK(list)
}
