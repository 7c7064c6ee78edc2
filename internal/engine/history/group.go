package history

// BeginGroup starts a commit group.
// Commits made while grouping collapse into a single history entry.
// Nested calls are ignored.
func (h *History[S]) BeginGroup(label string) {
	if h.grouping {
		return
	}
	h.grouping = true
	h.groupLabel = label
	h.groupOpen = false
}

// EndGroup finishes a commit group. If the group's final snapshot equals the
// snapshot that was current before the group started, the entry is dropped
// and the redo entries it pruned are restored.
func (h *History[S]) EndGroup() {
	if !h.grouping {
		return
	}
	open, base, tail := h.groupOpen, h.groupBase, h.groupTail
	h.clearGroup()

	if open && h.equal(h.entries[h.cursor].snapshot, base) {
		h.revert(tail)
	}
}

// CancelGroup discards a commit group, restoring the pre-group state.
func (h *History[S]) CancelGroup() {
	if !h.grouping {
		return
	}
	open, tail := h.groupOpen, h.groupTail
	h.clearGroup()

	if open {
		h.revert(tail)
	}
}

// IsGrouping returns true if a commit group is active.
func (h *History[S]) IsGrouping() bool {
	return h.grouping
}

// GroupScope provides a convenient way to group commits using defer.
//
//	func dragSection(h *History[project.Project]) {
//	    defer h.GroupScope("Drag section").End()
//	    // ... several commits ...
//	}
type GroupScope[S any] struct {
	history *History[S]
	active  bool
}

// GroupScope starts a new group scope.
func (h *History[S]) GroupScope(label string) *GroupScope[S] {
	h.BeginGroup(label)
	return &GroupScope[S]{history: h, active: true}
}

// End ends the group scope. Only the first call has effect.
func (g *GroupScope[S]) End() {
	if g.active {
		g.history.EndGroup()
		g.active = false
	}
}

// Cancel cancels the group scope. Only the first call has effect.
func (g *GroupScope[S]) Cancel() {
	if g.active {
		g.history.CancelGroup()
		g.active = false
	}
}

// Transaction runs fn inside a commit group.
// If fn returns an error the group is cancelled, otherwise it is ended.
// Inside an already active group fn simply runs as part of it.
func (h *History[S]) Transaction(label string, fn func() error) error {
	if h.grouping {
		return fn()
	}

	h.BeginGroup(label)
	if err := fn(); err != nil {
		h.CancelGroup()
		return err
	}
	h.EndGroup()
	return nil
}

// closeGroup ends any active group before cursor movement.
func (h *History[S]) closeGroup() {
	if h.grouping {
		h.EndGroup()
	}
}

func (h *History[S]) clearGroup() {
	var zero S
	h.grouping = false
	h.groupLabel = ""
	h.groupOpen = false
	h.groupBase = zero
	h.groupTail = nil
}

// revert removes the group's entry at the tip and restores the pruned tail.
func (h *History[S]) revert(tail []entry[S]) {
	h.entries[h.cursor] = entry[S]{}
	h.entries = h.entries[:h.cursor]
	h.cursor--
	h.entries = append(h.entries, tail...)
	h.notify(ChangeRevert)
}
