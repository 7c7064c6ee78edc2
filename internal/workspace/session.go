package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/sitesmith/internal/engine/history"
	"github.com/dshills/sitesmith/internal/engine/project"
	"github.com/dshills/sitesmith/internal/event"
	"github.com/dshills/sitesmith/internal/event/topic"
	"github.com/dshills/sitesmith/internal/input/key"
	"github.com/dshills/sitesmith/internal/input/keymap"
)

// Session errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
	ErrForbidden       = errors.New("not allowed to edit this project")
	ErrProjectMismatch = errors.New("snapshot belongs to another project")
	ErrOwnerChanged    = errors.New("snapshot changes the project owner")
)

// Saver persists project snapshots.
type Saver interface {
	SaveProject(ctx context.Context, p project.Project) error
}

// State is a read-only view of a session.
type State struct {
	SessionID   string              `json:"session_id"`
	Project     project.Project     `json:"project"`
	CanUndo     bool                `json:"can_undo"`
	CanRedo     bool                `json:"can_redo"`
	Cursor      int                 `json:"cursor"`
	Len         int                 `json:"len"`
	HelpVisible bool                `json:"help_visible"`
	Entries     []history.EntryInfo `json:"entries,omitempty"`
}

// KeyOutcome reports what a key event did. Handled is true when the session
// performed the action; an unhandled Action is left to the client.
type KeyOutcome struct {
	Action  string `json:"action,omitempty"`
	Handled bool   `json:"handled"`
}

// Session is one editing session of one project.
type Session struct {
	id        string
	userID    string
	projectID string
	ownerID   string
	opened    time.Time

	mu          sync.Mutex
	hist        *history.History[project.Project]
	pending     []history.Change[project.Project]
	helpVisible bool
	closed      bool

	saver       Saver
	saveTimeout time.Duration
	saves       sync.WaitGroup

	keys   *keymap.Registry
	bus    *event.Bus
	logger *zap.Logger
	now    func() time.Time
}

func newSession(id, userID string, p project.Project, cfg sessionConfig) *Session {
	s := &Session{
		id:          id,
		userID:      userID,
		projectID:   p.ID,
		ownerID:     p.OwnerID,
		opened:      cfg.now(),
		saver:       cfg.saver,
		saveTimeout: cfg.saveTimeout,
		keys:        cfg.keys,
		bus:         cfg.bus,
		logger:      cfg.logger.With(zap.String("session", id), zap.String("project", p.ID)),
		now:         cfg.now,
	}
	s.hist = history.New(p,
		history.WithEqual[project.Project](project.Equal),
		history.WithMaxEntries[project.Project](cfg.maxEntries),
		history.WithClock[project.Project](cfg.now),
	)
	s.hist.Subscribe(func(c history.Change[project.Project]) {
		s.pending = append(s.pending, c)
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the user who opened the session.
func (s *Session) UserID() string { return s.userID }

// ProjectID returns the edited project's ID.
func (s *Session) ProjectID() string { return s.projectID }

// OpenedAt returns when the session was opened.
func (s *Session) OpenedAt() time.Time { return s.opened }

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	return State{
		SessionID:   s.id,
		Project:     s.hist.Current().Clone(),
		CanUndo:     s.hist.CanUndo(),
		CanRedo:     s.hist.CanRedo(),
		Cursor:      s.hist.Cursor(),
		Len:         s.hist.Len(),
		HelpVisible: s.helpVisible,
		Entries:     s.hist.Entries(),
	}
}

// Commit records a copy of p as the new current snapshot. A snapshot equal to
// the current one leaves the history untouched.
func (s *Session) Commit(ctx context.Context, label string, p project.Project) (State, error) {
	return s.Edit(ctx, label, func(project.Project) (project.Project, error) {
		return p, nil
	})
}

// Edit applies fn to a copy of the current snapshot and commits a copy of
// the result. Stored snapshots are never shared with callers.
func (s *Session) Edit(ctx context.Context, label string, fn func(project.Project) (project.Project, error)) (State, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return State{}, ErrSessionClosed
	}
	next, err := fn(s.hist.Current().Clone())
	if err == nil {
		next = next.Clone()
		err = s.checkSnapshot(next)
	}
	if err != nil {
		s.mu.Unlock()
		return State{}, err
	}
	if s.logger.Core().Enabled(zap.DebugLevel) {
		s.logger.Debug("commit", zap.String("label", label), zap.String("diff", project.Diff(s.hist.Current(), next)))
	}
	s.hist.CommitLabeled(label, next)
	return s.finish(ctx)
}

func (s *Session) checkSnapshot(p project.Project) error {
	if p.ID != s.projectID {
		return fmt.Errorf("%w: %s", ErrProjectMismatch, p.ID)
	}
	if p.OwnerID != s.ownerID {
		return fmt.Errorf("%w: %s", ErrOwnerChanged, p.OwnerID)
	}
	return p.Validate()
}

// Undo moves back one snapshot. It is a no-op at the start of history.
func (s *Session) Undo(ctx context.Context) State {
	s.mu.Lock()
	s.hist.Undo()
	st, _ := s.finish(ctx)
	return st
}

// Redo moves forward one snapshot. It is a no-op at the end of history.
func (s *Session) Redo(ctx context.Context) State {
	s.mu.Lock()
	s.hist.Redo()
	st, _ := s.finish(ctx)
	return st
}

// Group runs fn with every commit it makes collapsed into one history entry.
// If fn returns an error, the group is discarded.
func (s *Session) Group(ctx context.Context, label string, fn func(commit func(project.Project) error) error) (State, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return State{}, ErrSessionClosed
	}
	err := s.hist.Transaction(label, func() error {
		return fn(func(p project.Project) error {
			if err := s.checkSnapshot(p); err != nil {
				return err
			}
			s.hist.Commit(p.Clone())
			return nil
		})
	})
	st, _ := s.finish(ctx)
	return st, err
}

// ToggleHelp flips the keyboard shortcut overlay.
func (s *Session) ToggleHelp(ctx context.Context) bool {
	s.mu.Lock()
	s.helpVisible = !s.helpVisible
	visible := s.helpVisible
	s.mu.Unlock()

	s.emit(ctx, TopicHelpToggled, HelpToggled{SessionID: s.id, Visible: visible})
	return visible
}

// HandleKey routes a key event through the keymap. Undo, redo, save and the
// help toggle run in the session; any other bound action is returned
// unhandled for the client.
func (s *Session) HandleKey(ctx context.Context, ev key.Event, kctx *keymap.Context) KeyOutcome {
	if s.keys == nil {
		return KeyOutcome{}
	}
	b, ok := s.keys.Lookup(ev, kctx)
	if !ok {
		return KeyOutcome{}
	}

	switch b.Action {
	case keymap.ActionUndo:
		s.Undo(ctx)
	case keymap.ActionRedo:
		s.Redo(ctx)
	case keymap.ActionSave:
		s.Save(ctx)
	case keymap.ActionToggleHelp:
		s.ToggleHelp(ctx)
	default:
		return KeyOutcome{Action: b.Action}
	}
	return KeyOutcome{Action: b.Action, Handled: true}
}

// Save persists the current snapshot in the background and returns at once.
// The outcome is published as workspace.saved or workspace.save.failed.
func (s *Session) Save(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	snap := s.hist.Current().Clone()
	s.saves.Add(1)
	s.mu.Unlock()

	snap.UpdatedAt = s.now()
	go s.save(context.WithoutCancel(ctx), snap)
}

func (s *Session) save(ctx context.Context, snap project.Project) {
	defer s.saves.Done()

	ctx, cancel := context.WithTimeout(ctx, s.saveTimeout)
	defer cancel()

	if err := s.saver.SaveProject(ctx, snap); err != nil {
		s.logger.Error("save failed", zap.Error(err))
		s.emitAsync(ctx, TopicSaveFailed, SaveFailed{SessionID: s.id, ProjectID: snap.ID, Error: err.Error()})
		return
	}
	s.logger.Info("project saved")
	s.emitAsync(ctx, TopicSaved, Saved{SessionID: s.id, ProjectID: snap.ID, SavedAt: snap.UpdatedAt})
}

// Wait blocks until in-flight saves finish.
func (s *Session) Wait() {
	s.saves.Wait()
}

// Reset replaces the whole history with p, e.g. after the project was
// reloaded from storage.
func (s *Session) Reset(ctx context.Context, p project.Project) (State, error) {
	s.mu.Lock()
	if err := s.checkSnapshot(p); err != nil {
		s.mu.Unlock()
		return State{}, err
	}
	s.hist.Reset(p.Clone())
	return s.finish(ctx)
}

// Subscribe registers a history listener. Listeners run while the session
// lock is held and must not call back into the session.
func (s *Session) Subscribe(l history.Listener[project.Project]) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	unsubscribe := s.hist.Subscribe(l)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		unsubscribe()
	}
}

func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.saves.Wait()
}

// finish collects pending changes, releases the lock and publishes them.
// Caller must hold s.mu.
func (s *Session) finish(ctx context.Context) (State, error) {
	st := s.stateLocked()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, c := range pending {
		s.emit(ctx, TopicChanged, Changed{
			SessionID: s.id,
			Kind:      c.Kind.String(),
			Project:   c.Current.Clone(),
			Cursor:    c.Cursor,
			Len:       c.Len,
			CanUndo:   c.CanUndo,
			CanRedo:   c.CanRedo,
		})
	}
	return st, nil
}

func (s *Session) emit(ctx context.Context, t topic.Topic, payload any) {
	if s.bus == nil {
		return
	}
	if err := event.Emit(ctx, s.bus, t, payload, eventSource); err != nil {
		s.logger.Warn("publish failed", zap.String("topic", t.String()), zap.Error(err))
	}
}

// emitAsync hands payload to the bus worker so a slow subscriber never holds
// up a save goroutine. A stopped bus delivers synchronously instead.
func (s *Session) emitAsync(ctx context.Context, t topic.Topic, payload any) {
	if s.bus == nil {
		return
	}
	err := event.EmitAsync(ctx, s.bus, t, payload, eventSource)
	if errors.Is(err, event.ErrBusNotRunning) {
		s.emit(ctx, t, payload)
		return
	}
	if err != nil {
		s.logger.Warn("publish failed", zap.String("topic", t.String()), zap.Error(err))
	}
}
