// Package workspace hosts project editing sessions.
//
// A Session owns the undo history of one open project. Every history call
// goes through the session mutex, so a History is only ever touched by one
// goroutine at a time. Sessions publish their changes on the event bus after
// the mutex is released; bus handlers may call back into the session.
//
// Saving is fire-and-forget: Save hands the current snapshot to the store on
// a background goroutine and returns. A failed save is logged and published
// as workspace.save.failed; the history is never rolled back.
package workspace
