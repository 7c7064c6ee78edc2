package history

import "time"

// EqualFunc reports whether two snapshots represent the same state.
type EqualFunc[S any] func(a, b S) bool

// ChangeKind identifies the operation that produced a Change.
type ChangeKind int

const (
	// ChangeCommit is a new or replaced snapshot.
	ChangeCommit ChangeKind = iota
	// ChangeUndo moved the cursor back.
	ChangeUndo
	// ChangeRedo moved the cursor forward.
	ChangeRedo
	// ChangeReset reseeded the history.
	ChangeReset
	// ChangeRevert dropped a group that had no net effect or was cancelled.
	ChangeRevert
)

// String returns the change kind name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeCommit:
		return "commit"
	case ChangeUndo:
		return "undo"
	case ChangeRedo:
		return "redo"
	case ChangeReset:
		return "reset"
	case ChangeRevert:
		return "revert"
	default:
		return "unknown"
	}
}

// Change describes the history state after an operation.
type Change[S any] struct {
	Kind    ChangeKind
	Current S
	Cursor  int
	Len     int
	CanUndo bool
	CanRedo bool
}

// Listener is notified after every state-changing operation.
type Listener[S any] func(Change[S])

// EntryInfo describes one history entry.
type EntryInfo struct {
	Index     int
	Label     string
	Timestamp time.Time
	Current   bool
}

// entry wraps a snapshot with metadata.
type entry[S any] struct {
	snapshot  S
	label     string
	timestamp time.Time
}

type subscription[S any] struct {
	id int
	fn Listener[S]
}

// History manages a linear undo/redo timeline of snapshots.
type History[S any] struct {
	entries []entry[S]
	cursor  int

	equal      EqualFunc[S]
	maxEntries int
	now        func() time.Time

	listeners []subscription[S]
	nextID    int

	// Grouping state
	grouping   bool
	groupLabel string
	groupOpen  bool
	groupBase  S
	groupTail  []entry[S]
}

// Option configures a History.
type Option[S any] func(*History[S])

// WithEqual sets the equality used for coalescing commits.
func WithEqual[S any](eq EqualFunc[S]) Option[S] {
	return func(h *History[S]) {
		if eq != nil {
			h.equal = eq
		}
	}
}

// WithMaxEntries bounds the number of retained snapshots. Oldest entries are
// dropped first. Zero or negative means unbounded; at least two entries are
// always kept.
func WithMaxEntries[S any](n int) Option[S] {
	return func(h *History[S]) {
		switch {
		case n <= 0:
			h.maxEntries = 0
		case n < 2:
			h.maxEntries = 2
		default:
			h.maxEntries = n
		}
	}
}

// WithClock overrides the time source used for entry timestamps.
func WithClock[S any](now func() time.Time) Option[S] {
	return func(h *History[S]) {
		if now != nil {
			h.now = now
		}
	}
}

// New creates a history seeded with the initial snapshot.
func New[S any](initial S, opts ...Option[S]) *History[S] {
	h := &History[S]{
		equal: StructuralEqual[S](),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.entries = []entry[S]{{snapshot: initial, timestamp: h.now()}}
	return h
}

// Commit records a new snapshot. A snapshot equal to the current one is ignored.
// Any redo entries are discarded.
func (h *History[S]) Commit(s S) {
	h.CommitLabeled("", s)
}

// CommitLabeled records a new snapshot with a label for display.
func (h *History[S]) CommitLabeled(label string, s S) {
	if h.equal(s, h.entries[h.cursor].snapshot) {
		return
	}

	e := entry[S]{snapshot: s, label: label, timestamp: h.now()}

	if h.grouping {
		if h.groupLabel != "" {
			e.label = h.groupLabel
		}
		if h.groupOpen {
			// Later commits in a group replace the group's entry
			h.entries[h.cursor] = e
			h.notify(ChangeCommit)
			return
		}
		h.groupOpen = true
		h.groupBase = h.entries[h.cursor].snapshot
		h.groupTail = append([]entry[S](nil), h.entries[h.cursor+1:]...)
	}

	h.truncate()
	h.entries = append(h.entries, e)
	h.cursor = len(h.entries) - 1
	h.enforceMax()
	h.notify(ChangeCommit)
}

// Undo moves to the previous snapshot. It is a no-op at the beginning.
func (h *History[S]) Undo() {
	h.closeGroup()
	if h.cursor == 0 {
		return
	}
	h.cursor--
	h.notify(ChangeUndo)
}

// Redo moves to the next snapshot. It is a no-op at the end.
func (h *History[S]) Redo() {
	h.closeGroup()
	if h.cursor >= len(h.entries)-1 {
		return
	}
	h.cursor++
	h.notify(ChangeRedo)
}

// Current returns the active snapshot.
func (h *History[S]) Current() S {
	return h.entries[h.cursor].snapshot
}

// CanUndo returns true if undo is available.
func (h *History[S]) CanUndo() bool {
	return h.cursor > 0
}

// CanRedo returns true if redo is available.
func (h *History[S]) CanRedo() bool {
	return h.cursor < len(h.entries)-1
}

// Len returns the number of retained snapshots.
func (h *History[S]) Len() int {
	return len(h.entries)
}

// Cursor returns the index of the active snapshot.
func (h *History[S]) Cursor() int {
	return h.cursor
}

// Entries returns info about all retained snapshots, oldest first.
func (h *History[S]) Entries() []EntryInfo {
	result := make([]EntryInfo, len(h.entries))
	for i, e := range h.entries {
		result[i] = EntryInfo{
			Index:     i,
			Label:     e.label,
			Timestamp: e.timestamp,
			Current:   i == h.cursor,
		}
	}
	return result
}

// Reset discards all history and reseeds it with a single snapshot.
func (h *History[S]) Reset(initial S) {
	h.clearGroup()
	clear(h.entries)
	h.entries = append(h.entries[:0], entry[S]{snapshot: initial, timestamp: h.now()})
	h.cursor = 0
	h.notify(ChangeReset)
}

// Subscribe registers a listener. The returned function removes it and is
// safe to call more than once.
func (h *History[S]) Subscribe(l Listener[S]) func() {
	if l == nil {
		return func() {}
	}
	h.nextID++
	id := h.nextID
	h.listeners = append(h.listeners, subscription[S]{id: id, fn: l})
	return func() {
		for i, sub := range h.listeners {
			if sub.id == id {
				h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
				return
			}
		}
	}
}

// truncate drops every entry after the cursor.
func (h *History[S]) truncate() {
	tail := h.entries[h.cursor+1:]
	clear(tail)
	h.entries = h.entries[:h.cursor+1]
}

// enforceMax removes the oldest entries beyond maxEntries.
func (h *History[S]) enforceMax() {
	if h.maxEntries == 0 || len(h.entries) <= h.maxEntries {
		return
	}
	excess := len(h.entries) - h.maxEntries
	n := copy(h.entries, h.entries[excess:])
	clear(h.entries[n:])
	h.entries = h.entries[:n]
	h.cursor -= excess
}

func (h *History[S]) state(kind ChangeKind) Change[S] {
	return Change[S]{
		Kind:    kind,
		Current: h.entries[h.cursor].snapshot,
		Cursor:  h.cursor,
		Len:     len(h.entries),
		CanUndo: h.CanUndo(),
		CanRedo: h.CanRedo(),
	}
}

func (h *History[S]) notify(kind ChangeKind) {
	if len(h.listeners) == 0 {
		return
	}
	change := h.state(kind)
	listeners := make([]subscription[S], len(h.listeners))
	copy(listeners, h.listeners)
	for _, sub := range listeners {
		sub.fn(change)
	}
}
