package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dshills/sitesmith/internal/action"
	"github.com/dshills/sitesmith/internal/engine/project"
	"github.com/dshills/sitesmith/internal/input/key"
	"github.com/dshills/sitesmith/internal/input/keymap"
	"github.com/dshills/sitesmith/internal/storage"
	"github.com/dshills/sitesmith/internal/workspace"
)

// writeWorkspaceError maps workspace and storage errors to results.
func (s *Server) writeWorkspaceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, workspace.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, failure("workspace not found"))
	case errors.Is(err, storage.ErrNotFound):
		writeResult(w, action.Fail(action.MsgProjectNotFound))
	case errors.Is(err, workspace.ErrForbidden):
		writeResult(w, action.Fail(action.MsgForbidden))
	case errors.Is(err, workspace.ErrSessionClosed):
		writeJSON(w, http.StatusConflict, failure("workspace is closed"))
	case errors.Is(err, workspace.ErrProjectMismatch), errors.Is(err, workspace.ErrOwnerChanged),
		errors.Is(err, project.ErrTitleRequired),
		errors.Is(err, project.ErrDuplicatePage), errors.Is(err, project.ErrDuplicateID):
		writeJSON(w, http.StatusUnprocessableEntity, failure(err.Error()))
	default:
		s.logger.Error("workspace request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, failure(msgInternal))
	}
}

// session returns the caller's session named by the {id} path value. It
// writes the failure response itself and returns nil when there is none.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *workspace.Session {
	id := identity(r)
	if id.UserID == "" {
		writeResult(w, action.Fail(action.MsgSignInRequired))
		return nil
	}
	sess, err := s.cfg.Workspaces.Get(r.PathValue("id"))
	if err != nil {
		s.writeWorkspaceError(w, r, err)
		return nil
	}
	if sess.UserID() != id.UserID {
		// Someone else's session looks the same as a missing one.
		s.writeWorkspaceError(w, r, workspace.ErrSessionNotFound)
		return nil
	}
	return sess
}

type openRequest struct {
	ProjectID string `json:"project_id"`
}

func (s *Server) handleOpenWorkspace(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if id.UserID == "" {
		writeResult(w, action.Fail(action.MsgSignInRequired))
		return
	}
	var req openRequest
	if err := decodeJSON(w, r, &req); err != nil || req.ProjectID == "" {
		writeJSON(w, http.StatusBadRequest, failure(msgBadRequest))
		return
	}
	sess, err := s.cfg.Workspaces.Open(r.Context(), req.ProjectID, id.UserID)
	if err != nil {
		s.writeWorkspaceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, action.OK(sess.State()))
}

func (s *Server) handleWorkspaceState(w http.ResponseWriter, r *http.Request) {
	if sess := s.session(w, r); sess != nil {
		writeResult(w, action.OK(sess.State()))
	}
}

type commitRequest struct {
	Label   string          `json:"label"`
	Project project.Project `json:"project"`
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req commitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure(msgBadRequest))
		return
	}
	st, err := sess.Commit(r.Context(), req.Label, req.Project)
	if err != nil {
		s.writeWorkspaceError(w, r, err)
		return
	}
	writeResult(w, action.OK(st))
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if sess := s.session(w, r); sess != nil {
		writeResult(w, action.OK(sess.Undo(r.Context())))
	}
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	if sess := s.session(w, r); sess != nil {
		writeResult(w, action.OK(sess.Redo(r.Context())))
	}
}

// keyRequest is a browser keydown forwarded by the editor.
type keyRequest struct {
	Event    key.DOMEvent `json:"event"`
	FocusTag string       `json:"focus_tag"`
	Editable bool         `json:"editable"`
	Platform string       `json:"platform"`
}

type keyResponse struct {
	Outcome workspace.KeyOutcome `json:"outcome"`
	State   workspace.State      `json:"state"`
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	var req keyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure(msgBadRequest))
		return
	}

	p := key.PlatformFromUserAgent(r.UserAgent())
	if req.Platform != "" {
		p = key.ParsePlatform(req.Platform)
	}
	var out workspace.KeyOutcome
	if ev, ok := key.FromDOM(req.Event); ok {
		out = sess.HandleKey(r.Context(), ev, &keymap.Context{
			Platform: p,
			FocusTag: req.FocusTag,
			Editable: req.Editable,
		})
	}
	writeResult(w, action.OK(keyResponse{Outcome: out, State: sess.State()}))
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	sess.Save(r.Context())
	writeJSON(w, http.StatusAccepted, action.OK(map[string]string{"session_id": sess.ID()}))
}

func (s *Server) handleCloseWorkspace(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	if err := s.cfg.Workspaces.Close(r.Context(), sess.ID()); err != nil {
		s.writeWorkspaceError(w, r, err)
		return
	}
	writeResult(w, action.OK(nil))
}
