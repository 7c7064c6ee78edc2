// Package history provides undo/redo functionality for the project workspace.
//
// The history keeps an ordered sequence of immutable snapshots plus a cursor
// that selects the active one. Snapshots are whole documents, never diffs; the
// package never looks inside them except through the equality function.
//
// # Timeline
//
// History is linear. Committing after an undo prunes the redo branch:
//
//	h := history.New(a)
//	h.Commit(b)
//	h.Commit(c)
//	h.Undo()   // current is b
//	h.Commit(d) // history is [a b d], c is gone
//
// Committing a snapshot equal to the current one is a no-op, so edits that
// produce no net change never grow the history.
//
// # Equality
//
// The default equality is structural (go-cmp). Snapshot types with unexported
// fields need WithEqual or StructuralEqual with the right cmp options.
//
// # Grouping
//
// Commits made between BeginGroup and EndGroup collapse into one entry:
//
//	h.BeginGroup("Drag section")
//	h.Commit(step1)
//	h.Commit(step2)
//	h.EndGroup() // one undo step; removed entirely if step2 equals the start
//
// # Notification
//
// Subscribe registers a listener that runs after every state change. No-op
// calls (undo at the start, redo at the end, coalesced commits) do not notify.
//
// # Concurrency
//
// History is not synchronized. All calls must come from one goroutine or be
// serialized by the caller.
package history
