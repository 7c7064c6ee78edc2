package workspace

import (
	"time"

	"github.com/dshills/sitesmith/internal/engine/project"
	"github.com/dshills/sitesmith/internal/event/topic"
)

// Event topics published by sessions.
const (
	TopicChanged     topic.Topic = "workspace.changed"
	TopicSaved       topic.Topic = "workspace.saved"
	TopicSaveFailed  topic.Topic = "workspace.save.failed"
	TopicHelpToggled topic.Topic = "workspace.help.toggled"
	TopicClosed      topic.Topic = "workspace.closed"
)

// SessionTopics is the pattern matching every session event.
const SessionTopics topic.Topic = "workspace.**"

const eventSource = "workspace"

// Changed is published after every history change.
type Changed struct {
	SessionID string          `json:"session_id"`
	Kind      string          `json:"kind"`
	Project   project.Project `json:"project"`
	Cursor    int             `json:"cursor"`
	Len       int             `json:"len"`
	CanUndo   bool            `json:"can_undo"`
	CanRedo   bool            `json:"can_redo"`
}

// Saved is published when a save completes.
type Saved struct {
	SessionID string    `json:"session_id"`
	ProjectID string    `json:"project_id"`
	SavedAt   time.Time `json:"saved_at"`
}

// SaveFailed is published when a save fails.
type SaveFailed struct {
	SessionID string `json:"session_id"`
	ProjectID string `json:"project_id"`
	Error     string `json:"error"`
}

// HelpToggled is published when the shortcut overlay opens or closes.
type HelpToggled struct {
	SessionID string `json:"session_id"`
	Visible   bool   `json:"visible"`
}

// Closed is published when a session is closed.
type Closed struct {
	SessionID string `json:"session_id"`
}

// SessionOf returns the session ID carried by a workspace event payload.
func SessionOf(payload any) string {
	switch p := payload.(type) {
	case Changed:
		return p.SessionID
	case Saved:
		return p.SessionID
	case SaveFailed:
		return p.SessionID
	case HelpToggled:
		return p.SessionID
	case Closed:
		return p.SessionID
	default:
		return ""
	}
}
