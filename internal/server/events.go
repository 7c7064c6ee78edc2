package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/sitesmith/internal/event"
	"github.com/dshills/sitesmith/internal/workspace"
)

const (
	streamBuffer    = 64
	streamHeartbeat = 25 * time.Second
)

// handleWorkspaceEvents streams a session's events as server-sent events.
// The first event is the current state; the stream ends when the session
// closes, the client goes away or the server shuts down.
func (s *Server) handleWorkspaceEvents(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	if s.cfg.Bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, failure("event streaming is not available"))
		return
	}

	sessionID := sess.ID()
	events := make(chan event.Envelope, streamBuffer)
	sub, err := s.cfg.Bus.Subscribe(workspace.SessionTopics, func(_ context.Context, env event.Envelope) {
		if workspace.SessionOf(env.Payload) != sessionID {
			return
		}
		select {
		case events <- env:
		default:
			s.logger.Warn("event stream lagging, dropping event",
				zap.String("session", sessionID),
				zap.String("topic", env.Topic.String()),
			)
		}
	})
	if err != nil {
		s.writeWorkspaceError(w, r, err)
		return
	}
	defer sub.Cancel()

	rc := http.NewResponseController(w)
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-store")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "state", "", sess.State()); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		s.logger.Debug("event stream flush unsupported", zap.Error(err))
		return
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.closing:
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case env := <-events:
			if err := writeEvent(w, env.Topic.String(), env.Metadata.ID, env.Payload); err != nil {
				return
			}
			if env.Topic == workspace.TopicClosed {
				_ = rc.Flush()
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, name, id string, payload any) error {
	data, err := api.Marshal(payload)
	if err != nil {
		return err
	}
	if id != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", id); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
