package workspace

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/sitesmith/internal/engine/project"
	"github.com/dshills/sitesmith/internal/event"
	"github.com/dshills/sitesmith/internal/input/keymap"
)

// Store loads and saves projects and answers access checks.
type Store interface {
	Saver
	GetProject(ctx context.Context, id string) (project.Project, error)
	IsCollaborator(ctx context.Context, projectID, userID string) (bool, error)
}

// Config configures a Manager.
type Config struct {
	// MaxEntries bounds each session's history. Zero means unbounded.
	MaxEntries int

	// SaveTimeout bounds a single background save.
	SaveTimeout time.Duration

	Keymap *keymap.Registry
	Bus    *event.Bus
	Logger *zap.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

type sessionConfig struct {
	saver       Saver
	saveTimeout time.Duration
	maxEntries  int
	keys        *keymap.Registry
	bus         *event.Bus
	logger      *zap.Logger
	now         func() time.Time
}

// Info summarizes an open session.
type Info struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProjectID string    `json:"project_id"`
	OpenedAt  time.Time `json:"opened_at"`
}

// Manager tracks the open sessions. Each session is independent; opening the
// same project twice yields two histories.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	store  Store
	config sessionConfig
	logger *zap.Logger
}

// NewManager creates a session manager backed by store.
func NewManager(store Store, cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("workspace")

	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		logger:   logger,
		config: sessionConfig{
			saver:       store,
			saveTimeout: cfg.SaveTimeout,
			maxEntries:  cfg.MaxEntries,
			keys:        cfg.Keymap,
			bus:         cfg.Bus,
			logger:      logger,
			now:         cfg.Now,
		},
	}
}

// Open loads a project and starts a session for userID. The user must own
// the project or be a collaborator on it.
func (m *Manager) Open(ctx context.Context, projectID, userID string) (*Session, error) {
	p, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", projectID, err)
	}

	if p.OwnerID != userID {
		ok, err := m.store.IsCollaborator(ctx, projectID, userID)
		if err != nil {
			return nil, fmt.Errorf("checking access: %w", err)
		}
		if !ok {
			return nil, ErrForbidden
		}
	}

	s := newSession(uuid.NewString(), userID, p, m.config)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.Info("session opened",
		zap.String("session", s.id),
		zap.String("project", projectID),
		zap.String("user", userID),
	)
	return s, nil
}

// Get returns an open session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close ends a session after its in-flight saves finish.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	s.emit(ctx, TopicClosed, Closed{SessionID: id})
	m.logger.Info("session closed", zap.String("session", id))
	return nil
}

// Sessions lists open sessions, oldest first.
func (m *Manager) Sessions() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, Info{ID: s.id, UserID: s.userID, ProjectID: s.projectID, OpenedAt: s.opened})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// Shutdown closes every session, waiting for pending saves or ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, s := range sessions {
			s.close()
		}
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
