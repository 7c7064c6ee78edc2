package action

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/sitesmith/internal/auth"
	"github.com/dshills/sitesmith/internal/engine/project"
	"github.com/dshills/sitesmith/internal/objectstore"
	"github.com/dshills/sitesmith/internal/pipeline"
	"github.com/dshills/sitesmith/internal/storage"
	"github.com/dshills/sitesmith/internal/storage/sqlite"
)

var (
	alice = auth.Identity{UserID: "user-alice", Email: "alice@example.com"}
	bob   = auth.Identity{UserID: "user-bob", Email: "Bob@Example.com"}
	carol = auth.Identity{UserID: "user-carol", Email: "carol@example.com"}
)

type fixture struct {
	actions *Actions
	store   storage.Store
	now     time.Time
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

type fixtureOptions struct {
	uploader  Uploader
	rebuilder Rebuilder
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "sitesmith.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	if opts.uploader == nil {
		objects, err := objectstore.New(t.TempDir(), "https://sitesmith.test/objects", objectstore.WithMaxBytes(64))
		require.NoError(t, err)
		opts.uploader = objects
	}

	f := &fixture{
		store: store,
		now:   time.Date(2026, time.April, 2, 10, 0, 0, 0, time.UTC),
	}
	n := 0
	f.actions = New(store, opts.uploader, opts.rebuilder, Config{
		PublicURL:     "https://sitesmith.test/",
		LinkTTL:       time.Hour,
		InvitationTTL: 24 * time.Hour,
	},
		WithLogger(zaptest.NewLogger(t)),
		WithClock(func() time.Time { return f.now }),
		WithTokens(func() string {
			n++
			return fmt.Sprintf("token-%d", n)
		}),
	)
	return f
}

func (f *fixture) seedProject(t *testing.T, id, owner string) {
	t.Helper()
	err := f.store.SaveProject(context.Background(), project.Project{
		ID:        id,
		OwnerID:   owner,
		Title:     "Bakery",
		Pages:     []project.Page{{Slug: "home", Title: "Home"}},
		UpdatedAt: f.now,
	})
	require.NoError(t, err)
}

func requireFail(t *testing.T, res Result, msg string) {
	t.Helper()
	require.False(t, res.Success, "result = %+v", res)
	require.Equal(t, msg, res.Error)
	require.Nil(t, res.Data)
}

func requireOK[T any](t *testing.T, res Result) T {
	t.Helper()
	require.True(t, res.Success, "result error = %q", res.Error)
	require.Empty(t, res.Error)
	data, ok := res.Data.(T)
	require.True(t, ok, "data = %T", res.Data)
	return data
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"alice@example.com", "alice@example.com", true},
		{"  Alice@Example.COM \n", "alice@example.com", true},
		{"josé@example.com", "josé@example.com", true},
		{"first.last+tag@mail.example.org", "first.last+tag@mail.example.org", true},
		{"", "", false},
		{"   ", "", false},
		{"not-an-email", "", false},
		{"a@b", "", false},
		{"@example.com", "", false},
		{"a@@example.com", "", false},
		{"Alice <alice@example.com>", "", false},
		{"a@example.com.", "", false},
		{"a b@example.com", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeEmail(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("NormalizeEmail(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSubscribeNewsletter(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	requireFail(t, f.actions.SubscribeNewsletter(ctx, "nope"), MsgInvalidEmail)
	requireFail(t, f.actions.SubscribeNewsletter(ctx, ""), MsgInvalidEmail)

	first := requireOK[storage.Subscriber](t, f.actions.SubscribeNewsletter(ctx, " Reader@Example.com "))
	require.Equal(t, "reader@example.com", first.Email)

	f.advance(time.Minute)
	second := requireOK[storage.Subscriber](t, f.actions.SubscribeNewsletter(ctx, "reader@example.com"))
	require.Equal(t, first.Email, second.Email)
	require.True(t, second.CreatedAt.Equal(first.CreatedAt))
	require.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestSubscribeNewsletterStoreFailure(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	require.NoError(t, f.store.Close())

	requireFail(t, f.actions.SubscribeNewsletter(context.Background(), "reader@example.com"), MsgSubscribeFailed)
}

type failingUploader struct{}

func (failingUploader) Put(context.Context, string, string, string, io.Reader) (objectstore.Object, error) {
	return objectstore.Object{}, errors.New("bucket unavailable")
}

func TestUploadAsset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})

	file := func(body string) *File {
		return &File{Name: "../Logo Final.png", ContentType: "image/png", Size: int64(len(body)), Body: strings.NewReader(body)}
	}

	requireFail(t, f.actions.UploadAsset(ctx, auth.Identity{}, file("png")), MsgSignInToUpload)
	requireFail(t, f.actions.UploadAsset(ctx, alice, nil), MsgNoFile)
	requireFail(t, f.actions.UploadAsset(ctx, alice, &File{Name: "a.png"}), MsgNoFile)
	requireFail(t, f.actions.UploadAsset(ctx, alice, file("")), MsgNoFile)
	requireFail(t, f.actions.UploadAsset(ctx, alice, file(strings.Repeat("x", 65))), MsgFileTooLarge)

	obj := requireOK[objectstore.Object](t, f.actions.UploadAsset(ctx, alice, file("png bytes")))
	require.True(t, strings.HasPrefix(obj.Key, "uploads/user-alice/"), obj.Key)
	require.True(t, strings.HasSuffix(obj.Key, "/Logo-Final.png"), obj.Key)
	require.Equal(t, "https://sitesmith.test/objects/"+obj.Key, obj.URL)
	require.Equal(t, int64(9), obj.Size)

	failing := newFixture(t, fixtureOptions{uploader: failingUploader{}})
	requireFail(t, failing.actions.UploadAsset(ctx, alice, file("png")), MsgUploadFailed)
}

func TestShareLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.seedProject(t, "p1", alice.UserID)

	requireFail(t, f.actions.CreateShareLink(ctx, auth.Identity{}, "p1"), MsgSignInRequired)
	requireFail(t, f.actions.CreateShareLink(ctx, alice, "missing"), MsgProjectNotFound)
	requireFail(t, f.actions.CreateShareLink(ctx, carol, "p1"), MsgForbidden)

	link := requireOK[SharedLink](t, f.actions.CreateShareLink(ctx, alice, "p1"))
	require.Equal(t, "token-1", link.Token)
	require.Equal(t, "https://sitesmith.test/s/token-1", link.URL)
	require.True(t, link.ExpiresAt.Equal(f.now.Add(time.Hour)))

	shared := requireOK[SharedProject](t, f.actions.ResolveShareLink(ctx, "token-1"))
	require.Equal(t, "Bakery", shared.Project.Title)

	requireFail(t, f.actions.ResolveShareLink(ctx, ""), MsgShareLinkNotFound)
	requireFail(t, f.actions.ResolveShareLink(ctx, "unknown"), MsgShareLinkNotFound)

	f.advance(time.Hour)
	requireFail(t, f.actions.ResolveShareLink(ctx, "token-1"), MsgShareLinkExpired)
}

func TestInvitations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.seedProject(t, "p1", alice.UserID)

	requireFail(t, f.actions.InviteCollaborator(ctx, alice, "p1", "bob"), MsgInvalidEmail)
	requireFail(t, f.actions.InviteCollaborator(ctx, carol, "p1", "bob@example.com"), MsgForbidden)

	inv := requireOK[SentInvitation](t, f.actions.InviteCollaborator(ctx, alice, "p1", " BOB@example.com"))
	require.Equal(t, "bob@example.com", inv.Email)
	require.Equal(t, "https://sitesmith.test/invitations/"+inv.Token, inv.URL)

	requireFail(t, f.actions.AcceptInvitation(ctx, auth.Identity{}, inv.Token), MsgSignInRequired)
	requireFail(t, f.actions.AcceptInvitation(ctx, bob, "unknown"), MsgInvitationNotFound)
	requireFail(t, f.actions.AcceptInvitation(ctx, carol, inv.Token), MsgInvitationMismatch)

	// Bob cannot share before accepting.
	requireFail(t, f.actions.CreateShareLink(ctx, bob, "p1"), MsgForbidden)

	accepted := requireOK[storage.Invitation](t, f.actions.AcceptInvitation(ctx, bob, inv.Token))
	require.Equal(t, bob.UserID, accepted.AcceptedBy)
	require.True(t, accepted.Accepted())

	// Accepting again is idempotent for the same user.
	requireOK[storage.Invitation](t, f.actions.AcceptInvitation(ctx, bob, inv.Token))

	// Another account with the same email cannot reuse it.
	bobAlt := auth.Identity{UserID: "user-bob-2", Email: bob.Email}
	requireFail(t, f.actions.AcceptInvitation(ctx, bobAlt, inv.Token), MsgInvitationUsed)

	collaborators := requireOK[[]storage.Collaborator](t, f.actions.ListCollaborators(ctx, alice, "p1"))
	require.Len(t, collaborators, 1)
	require.Equal(t, bob.UserID, collaborators[0].UserID)

	// Collaborators may share but only the owner invites and publishes.
	requireOK[SharedLink](t, f.actions.CreateShareLink(ctx, bob, "p1"))
	requireFail(t, f.actions.InviteCollaborator(ctx, bob, "p1", "carol@example.com"), MsgForbidden)
	requireFail(t, f.actions.PublishProject(ctx, bob, "p1"), MsgForbidden)

	late := requireOK[SentInvitation](t, f.actions.InviteCollaborator(ctx, alice, "p1", carol.Email))
	f.advance(24 * time.Hour)
	requireFail(t, f.actions.AcceptInvitation(ctx, carol, late.Token), MsgInvitationExpired)
}

func TestPublishProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOptions{})
	f.seedProject(t, "p1", alice.UserID)

	requireFail(t, f.actions.PublishedProject(ctx, "p1"), MsgProjectNotFound)
	requireFail(t, f.actions.PublishProject(ctx, alice, "missing"), MsgProjectNotFound)

	pub := requireOK[Published](t, f.actions.PublishProject(ctx, alice, "p1"))
	require.Equal(t, "https://sitesmith.test/p/p1", pub.URL)
	require.True(t, pub.PublishedAt.Equal(f.now))

	p := requireOK[project.Project](t, f.actions.PublishedProject(ctx, "p1"))
	require.True(t, p.Published)
	requireFail(t, f.actions.PublishedProject(ctx, "missing"), MsgProjectNotFound)

	list := requireOK[[]storage.ProjectSummary](t, f.actions.ListProjects(ctx, alice))
	require.Len(t, list, 1)
	require.True(t, list[0].Published)

	empty := requireOK[[]storage.ProjectSummary](t, f.actions.ListProjects(ctx, carol))
	require.Empty(t, empty)
}

type fakeRebuilder struct {
	res pipeline.Result
	err error
}

func (r *fakeRebuilder) Run(context.Context, string) (pipeline.Result, error) {
	return r.res, r.err
}

func TestRebuildSite(t *testing.T) {
	ctx := context.Background()

	unconfigured := newFixture(t, fixtureOptions{})
	requireFail(t, unconfigured.actions.RebuildSite(ctx, alice, "https://acme.test"), MsgRebuildUnavailable)

	failing := newFixture(t, fixtureOptions{rebuilder: &fakeRebuilder{
		err: &pipeline.StageError{Stage: pipeline.StageDesign, Err: errors.New("quota exceeded")},
	}})
	requireFail(t, failing.actions.RebuildSite(ctx, alice, "https://acme.test"), "rebuild failed at the design stage")

	built := project.Project{
		Title:     "Acme",
		SourceURL: "https://acme.test",
		Pages:     []project.Page{{Slug: "home", Title: "Home"}},
	}
	f := newFixture(t, fixtureOptions{rebuilder: &fakeRebuilder{res: pipeline.Result{Project: built}}})

	requireFail(t, f.actions.RebuildSite(ctx, auth.Identity{}, "https://acme.test"), MsgSignInRequired)
	requireFail(t, f.actions.RebuildSite(ctx, alice, "ftp://acme.test"), MsgInvalidURL)

	p := requireOK[project.Project](t, f.actions.RebuildSite(ctx, alice, "https://acme.test"))
	require.Equal(t, "token-1", p.ID)
	require.Equal(t, alice.UserID, p.OwnerID)

	stored, err := f.store.GetProject(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme", stored.Title)
	require.Equal(t, "https://acme.test", stored.SourceURL)
}
