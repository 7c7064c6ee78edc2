// Package action implements the application's form actions.
//
// Every action returns a Result. Errors from collaborators are logged and
// translated into a fixed user-facing message; they never reach the caller.
package action

import (
	"context"
	"errors"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/dshills/sitesmith/internal/auth"
	"github.com/dshills/sitesmith/internal/engine/project"
	"github.com/dshills/sitesmith/internal/objectstore"
	"github.com/dshills/sitesmith/internal/pipeline"
	"github.com/dshills/sitesmith/internal/storage"
)

// Uploader stores uploaded files.
type Uploader interface {
	Put(ctx context.Context, namespace, filename, contentType string, r io.Reader) (objectstore.Object, error)
}

// Rebuilder reconstructs a site into a project.
type Rebuilder interface {
	Run(ctx context.Context, sourceURL string) (pipeline.Result, error)
}

// Config holds action settings.
type Config struct {
	// PublicURL is the externally visible base URL used in share and
	// invitation links.
	PublicURL     string
	LinkTTL       time.Duration
	InvitationTTL time.Duration
}

// Actions runs form actions against the application's collaborators.
type Actions struct {
	store   storage.Store
	objects Uploader
	rebuild Rebuilder
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
	token   func() string
}

// Option configures Actions.
type Option func(*Actions)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Actions) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(a *Actions) {
		if now != nil {
			a.now = now
		}
	}
}

// WithTokens overrides share and invitation token generation.
func WithTokens(gen func() string) Option {
	return func(a *Actions) {
		if gen != nil {
			a.token = gen
		}
	}
}

// New creates Actions. rebuild may be nil when no AI backend is configured.
func New(store storage.Store, objects Uploader, rebuild Rebuilder, cfg Config, opts ...Option) *Actions {
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = 7 * 24 * time.Hour
	}
	if cfg.InvitationTTL <= 0 {
		cfg.InvitationTTL = 3 * 24 * time.Hour
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	a := &Actions{
		store:   store,
		objects: objects,
		rebuild: rebuild,
		cfg:     cfg,
		logger:  zap.NewNop(),
		now:     time.Now,
		token:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NormalizeEmail trims, lowercases and NFC-normalizes an email address and
// checks that it is a bare address with a dotted domain.
func NormalizeEmail(raw string) (string, bool) {
	email := norm.NFC.String(strings.ToLower(strings.TrimSpace(raw)))
	if email == "" {
		return "", false
	}
	parsed, err := mail.ParseAddress(email)
	if err != nil || parsed.Address != email {
		return "", false
	}
	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	if at < 1 || !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", false
	}
	return email, true
}

// SubscribeNewsletter records a newsletter signup. Subscribing twice is not
// an error.
func (a *Actions) SubscribeNewsletter(ctx context.Context, rawEmail string) Result {
	email, ok := NormalizeEmail(rawEmail)
	if !ok {
		return Fail(MsgInvalidEmail)
	}
	sub, err := a.store.UpsertSubscriber(ctx, email, a.now().UTC())
	if err != nil {
		a.logger.Error("subscribe newsletter failed", zap.Error(err))
		return Fail(MsgSubscribeFailed)
	}
	return OK(sub)
}

// File is an uploaded file.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadAsset stores a file under the uploader's namespace.
func (a *Actions) UploadAsset(ctx context.Context, id auth.Identity, file *File) Result {
	if id.UserID == "" {
		return Fail(MsgSignInToUpload)
	}
	if file == nil || file.Body == nil || file.Name == "" {
		return Fail(MsgNoFile)
	}

	obj, err := a.objects.Put(ctx, "uploads/"+id.UserID, file.Name, file.ContentType, file.Body)
	switch {
	case errors.Is(err, objectstore.ErrEmpty):
		return Fail(MsgNoFile)
	case errors.Is(err, objectstore.ErrTooLarge):
		return Fail(MsgFileTooLarge)
	case err != nil:
		a.logger.Error("upload failed",
			zap.String("user", id.UserID),
			zap.String("file", file.Name),
			zap.Error(err),
		)
		return Fail(MsgUploadFailed)
	}
	a.logger.Info("asset uploaded", zap.String("user", id.UserID), zap.String("key", obj.Key))
	return OK(obj)
}

// ListProjects lists the projects owned by the caller.
func (a *Actions) ListProjects(ctx context.Context, id auth.Identity) Result {
	if id.UserID == "" {
		return Fail(MsgSignInRequired)
	}
	list, err := a.store.ListProjects(ctx, id.UserID)
	if err != nil {
		a.logger.Error("list projects failed", zap.String("user", id.UserID), zap.Error(err))
		return Fail(MsgSomethingWentWrong)
	}
	if list == nil {
		list = []storage.ProjectSummary{}
	}
	return OK(list)
}

// access levels for project actions.
type access int

const (
	accessOwner access = iota
	accessEditor
)

// loadProject fetches a project the caller may act on. A non-empty message
// means the caller must fail with it.
func (a *Actions) loadProject(ctx context.Context, id auth.Identity, projectID string, need access) (project.Project, string) {
	if id.UserID == "" {
		return project.Project{}, MsgSignInRequired
	}
	p, err := a.store.GetProject(ctx, projectID)
	if errors.Is(err, storage.ErrNotFound) {
		return project.Project{}, MsgProjectNotFound
	}
	if err != nil {
		a.logger.Error("load project failed", zap.String("project", projectID), zap.Error(err))
		return project.Project{}, MsgSomethingWentWrong
	}
	if p.OwnerID == id.UserID {
		return p, ""
	}
	if need == accessEditor {
		ok, err := a.store.IsCollaborator(ctx, projectID, id.UserID)
		if err != nil {
			a.logger.Error("collaborator check failed", zap.String("project", projectID), zap.Error(err))
			return project.Project{}, MsgSomethingWentWrong
		}
		if ok {
			return p, ""
		}
	}
	return project.Project{}, MsgForbidden
}
