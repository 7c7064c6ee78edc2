// Package server exposes the application over HTTP.
//
// JSON endpoints live under /api and answer with the action result shape
// {"success": bool, "error": string, "data": any}. Share links and published
// projects render as HTML pages; uploaded objects are served under /objects/.
package server

import (
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/dshills/sitesmith/internal/action"
	"github.com/dshills/sitesmith/internal/auth"
	"github.com/dshills/sitesmith/internal/billing"
	"github.com/dshills/sitesmith/internal/event"
	"github.com/dshills/sitesmith/internal/input/keymap"
	"github.com/dshills/sitesmith/internal/workspace"
)

// Config holds the server's collaborators.
type Config struct {
	Actions    *action.Actions
	Workspaces *workspace.Manager
	Keymap     *keymap.Registry
	Billing    *billing.Holder
	Bus        *event.Bus

	// Verifier authenticates requests. Nil disables authentication.
	Verifier *auth.Verifier

	// Objects serves stored objects by key.
	Objects http.Handler

	// Locale is the default locale for prices.
	Locale language.Tag

	// MaxUploadBytes bounds multipart upload bodies.
	MaxUploadBytes int64

	Logger *zap.Logger
}

// Server routes HTTP requests.
type Server struct {
	cfg     Config
	logger  *zap.Logger
	mux     *http.ServeMux
	handler http.Handler

	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a server.
func New(cfg Config) (*Server, error) {
	if cfg.Actions == nil {
		return nil, errors.New("server: actions are required")
	}
	if cfg.Workspaces == nil {
		return nil, errors.New("server: workspace manager is required")
	}
	if cfg.Billing == nil {
		return nil, errors.New("server: billing catalog is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Locale == language.Und {
		cfg.Locale = language.AmericanEnglish
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}

	s := &Server{
		cfg:     cfg,
		logger:  cfg.Logger.Named("http"),
		mux:     http.NewServeMux(),
		closing: make(chan struct{}),
	}
	s.routes()
	s.handler = Chain(s.mux,
		RequestID(),
		Authenticate(cfg.Verifier, s.logger),
		AccessLog(s.logger),
		Recover(s.logger),
	)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// CloseStreams ends open event streams so a graceful shutdown can finish.
func (s *Server) CloseStreams() {
	s.closeOnce.Do(func() { close(s.closing) })
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /api/newsletter", s.handleNewsletter)
	s.mux.HandleFunc("POST /api/uploads", s.handleUpload)
	s.mux.HandleFunc("GET /api/packs", s.handlePacks)
	s.mux.HandleFunc("POST /api/packs/{id}/checkout", s.handleCheckout)
	s.mux.HandleFunc("GET /api/keymap", s.handleKeymap)

	s.mux.HandleFunc("GET /api/projects", s.handleListProjects)
	s.mux.HandleFunc("POST /api/projects/rebuild", s.handleRebuild)
	s.mux.HandleFunc("POST /api/projects/{id}/publish", s.handlePublish)
	s.mux.HandleFunc("POST /api/projects/{id}/share", s.handleShare)
	s.mux.HandleFunc("POST /api/projects/{id}/invitations", s.handleInvite)
	s.mux.HandleFunc("GET /api/projects/{id}/collaborators", s.handleCollaborators)
	s.mux.HandleFunc("POST /api/invitations/{token}/accept", s.handleAcceptInvitation)
	s.mux.HandleFunc("GET /api/share/{token}", s.handleResolveShare)

	s.mux.HandleFunc("POST /api/workspaces", s.handleOpenWorkspace)
	s.mux.HandleFunc("GET /api/workspaces/{id}", s.handleWorkspaceState)
	s.mux.HandleFunc("POST /api/workspaces/{id}/commit", s.handleCommit)
	s.mux.HandleFunc("POST /api/workspaces/{id}/undo", s.handleUndo)
	s.mux.HandleFunc("POST /api/workspaces/{id}/redo", s.handleRedo)
	s.mux.HandleFunc("POST /api/workspaces/{id}/keys", s.handleKey)
	s.mux.HandleFunc("POST /api/workspaces/{id}/save", s.handleSave)
	s.mux.HandleFunc("DELETE /api/workspaces/{id}", s.handleCloseWorkspace)
	s.mux.HandleFunc("GET /api/workspaces/{id}/events", s.handleWorkspaceEvents)

	s.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, failure("not found"))
	})

	s.mux.HandleFunc("GET /s/{token}", s.handleSharePage)
	s.mux.HandleFunc("GET /p/{id}", s.handlePublishedPage)
	if s.cfg.Objects != nil {
		s.mux.Handle("/objects/", http.StripPrefix("/objects/", s.cfg.Objects))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": len(s.cfg.Workspaces.Sessions()),
	})
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}
