// Package storagetest holds the behavior suite every storage.Store backend
// must pass.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dshills/sitesmith/internal/engine/project"
	"github.com/dshills/sitesmith/internal/storage"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) storage.Store

var base = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(*testing.T, storage.Store)
	}{
		{"UpsertSubscriber", testUpsertSubscriber},
		{"ProjectRoundTrip", testProjectRoundTrip},
		{"ProjectOwnerConflict", testProjectOwnerConflict},
		{"ListProjects", testListProjects},
		{"PublishProject", testPublishProject},
		{"ShareLinks", testShareLinks},
		{"Invitations", testInvitations},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func sampleProject(id, owner string) project.Project {
	return project.Project{
		ID:      id,
		OwnerID: owner,
		Title:   "Bakery " + id,
		Theme:   "warm",
		Pages: []project.Page{{
			Slug:  "home",
			Title: "Home",
			Sections: []project.Section{
				{ID: "hero", Kind: "hero", Props: map[string]string{"headline": "Fresh bread"}},
			},
		}},
		UpdatedAt: base,
	}
}

func testUpsertSubscriber(t *testing.T, s storage.Store) {
	ctx := context.Background()

	first, err := s.UpsertSubscriber(ctx, "ada@example.com", base)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", first.Email)
	require.True(t, first.CreatedAt.Equal(base))

	later := base.Add(time.Hour)
	second, err := s.UpsertSubscriber(ctx, "ada@example.com", later)
	require.NoError(t, err)
	require.True(t, second.CreatedAt.Equal(base), "created_at must survive re-subscribe")
	require.True(t, second.UpdatedAt.Equal(later), "updated_at must be refreshed")
}

func testProjectRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.GetProject(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	p := sampleProject("p1", "u1")
	require.NoError(t, s.SaveProject(ctx, p))

	got, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	require.True(t, project.Equal(p, got), project.Diff(p, got))

	edited := p.WithTitle("Renamed")
	edited.UpdatedAt = base.Add(time.Minute)
	require.NoError(t, s.SaveProject(ctx, edited))

	got, err = s.GetProject(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Title)
}

func testProjectOwnerConflict(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveProject(ctx, sampleProject("p1", "u1")))

	err := s.SaveProject(ctx, sampleProject("p1", "intruder"))
	require.ErrorIs(t, err, storage.ErrConflict)

	got, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.OwnerID)
}

func testListProjects(t *testing.T, s storage.Store) {
	ctx := context.Background()

	older := sampleProject("a", "u1")
	newer := sampleProject("b", "u1")
	newer.UpdatedAt = base.Add(time.Hour)
	other := sampleProject("c", "u2")
	for _, p := range []project.Project{older, newer, other} {
		require.NoError(t, s.SaveProject(ctx, p))
	}

	list, err := s.ListProjects(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "b", list[0].ID)
	require.Equal(t, "a", list[1].ID)

	list, err = s.ListProjects(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, list)
}

func testPublishProject(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.ErrorIs(t, s.PublishProject(ctx, "missing", base), storage.ErrNotFound)

	require.NoError(t, s.SaveProject(ctx, sampleProject("p1", "u1")))
	at := base.Add(2 * time.Hour)
	require.NoError(t, s.PublishProject(ctx, "p1", at))

	got, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	require.True(t, got.Published)

	list, err := s.ListProjects(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, list[0].Published)
	require.NotNil(t, list[0].PublishedAt)
	require.True(t, list[0].PublishedAt.Equal(at))
}

func testShareLinks(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveProject(ctx, sampleProject("p1", "u1")))

	link := storage.ShareLink{
		Token:     "tok-1",
		ProjectID: "p1",
		CreatedBy: "u1",
		CreatedAt: base,
		ExpiresAt: base.Add(24 * time.Hour),
	}
	require.NoError(t, s.CreateShareLink(ctx, link))
	require.ErrorIs(t, s.CreateShareLink(ctx, link), storage.ErrConflict)

	got, err := s.ResolveShareLink(ctx, "tok-1", base.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, "p1", got.ProjectID)
	require.True(t, got.ExpiresAt.Equal(link.ExpiresAt))

	_, err = s.ResolveShareLink(ctx, "tok-1", link.ExpiresAt)
	require.ErrorIs(t, err, storage.ErrExpired)

	_, err = s.ResolveShareLink(ctx, "nope", base)
	require.ErrorIs(t, err, storage.ErrNotFound)

	orphan := link
	orphan.Token = "tok-2"
	orphan.ProjectID = "missing"
	require.ErrorIs(t, s.CreateShareLink(ctx, orphan), storage.ErrNotFound)
}

func testInvitations(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveProject(ctx, sampleProject("p1", "u1")))

	inv := storage.Invitation{
		Token:     "inv-1",
		ProjectID: "p1",
		Email:     "bob@example.com",
		InvitedBy: "u1",
		CreatedAt: base,
		ExpiresAt: base.Add(48 * time.Hour),
	}
	require.NoError(t, s.CreateInvitation(ctx, inv))
	require.ErrorIs(t, s.CreateInvitation(ctx, inv), storage.ErrConflict)

	got, err := s.GetInvitation(ctx, "inv-1")
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", got.Email)
	require.False(t, got.Accepted())

	_, err = s.GetInvitation(ctx, "nope")
	require.ErrorIs(t, err, storage.ErrNotFound)

	ok, err := s.IsCollaborator(ctx, "p1", "u2")
	require.NoError(t, err)
	require.False(t, ok)

	at := base.Add(time.Hour)
	accepted, err := s.AcceptInvitation(ctx, "inv-1", "u2", at)
	require.NoError(t, err)
	require.True(t, accepted.Accepted())
	require.Equal(t, "u2", accepted.AcceptedBy)

	again, err := s.AcceptInvitation(ctx, "inv-1", "u2", at.Add(time.Minute))
	require.NoError(t, err, "accepting twice with the same user is idempotent")
	require.True(t, again.AcceptedAt.Equal(at))

	_, err = s.AcceptInvitation(ctx, "inv-1", "u3", at)
	require.ErrorIs(t, err, storage.ErrConflict)

	ok, err = s.IsCollaborator(ctx, "p1", "u2")
	require.NoError(t, err)
	require.True(t, ok)

	collabs, err := s.ListCollaborators(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, collabs, 1)
	require.Equal(t, "u2", collabs[0].UserID)

	expired := inv
	expired.Token = "inv-2"
	expired.ExpiresAt = base.Add(time.Minute)
	require.NoError(t, s.CreateInvitation(ctx, expired))
	_, err = s.AcceptInvitation(ctx, "inv-2", "u4", base.Add(time.Hour))
	require.ErrorIs(t, err, storage.ErrExpired)

	_, err = s.AcceptInvitation(ctx, "nope", "u4", base)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
