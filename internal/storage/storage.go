// Package storage defines the relational records and store contract shared by
// the SQLite and Postgres backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/sitesmith/internal/engine/project"
)

// Errors returned by every Store implementation.
var (
	ErrNotFound = errors.New("record not found")
	ErrExpired  = errors.New("record expired")
	ErrConflict = errors.New("record conflict")
)

// Subscriber is a newsletter signup keyed by normalized email.
type Subscriber struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectSummary is a project listing row.
type ProjectSummary struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ShareLink grants read access to a project until it expires.
type ShareLink struct {
	Token     string    `json:"token"`
	ProjectID string    `json:"project_id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the link is no longer valid at now.
func (l ShareLink) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// Invitation asks someone to collaborate on a project.
type Invitation struct {
	Token      string     `json:"token"`
	ProjectID  string     `json:"project_id"`
	Email      string     `json:"email"`
	InvitedBy  string     `json:"invited_by"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedBy string     `json:"accepted_by,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// Expired reports whether the invitation can no longer be accepted at now.
func (i Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Accepted reports whether the invitation has been used.
func (i Invitation) Accepted() bool {
	return i.AcceptedAt != nil
}

// Collaborator is a user with edit access to a project they don't own.
type Collaborator struct {
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	AddedAt   time.Time `json:"added_at"`
}

// Store is the relational store used by the application.
//
// ResolveShareLink and AcceptInvitation return ErrExpired past the expiry
// time. Accepting an invitation twice with the same user is idempotent; with
// another user it is ErrConflict.
type Store interface {
	UpsertSubscriber(ctx context.Context, email string, at time.Time) (Subscriber, error)

	SaveProject(ctx context.Context, p project.Project) error
	GetProject(ctx context.Context, id string) (project.Project, error)
	ListProjects(ctx context.Context, ownerID string) ([]ProjectSummary, error)
	PublishProject(ctx context.Context, id string, at time.Time) error

	CreateShareLink(ctx context.Context, link ShareLink) error
	ResolveShareLink(ctx context.Context, token string, now time.Time) (ShareLink, error)

	CreateInvitation(ctx context.Context, inv Invitation) error
	GetInvitation(ctx context.Context, token string) (Invitation, error)
	AcceptInvitation(ctx context.Context, token, userID string, at time.Time) (Invitation, error)
	ListCollaborators(ctx context.Context, projectID string) ([]Collaborator, error)
	IsCollaborator(ctx context.Context, projectID, userID string) (bool, error)

	Close() error
}
