// Package topic provides hierarchical topic names and pattern matching for
// the event bus.
//
// Topics use dot-notation:
//
//	workspace.changed
//	workspace.save.failed
//	pipeline.stage.completed
//
// Two wildcard patterns are supported:
//
//   - "*" matches exactly one segment
//   - "**" matches zero or more segments
//
// Examples:
//
//	workspace.*        matches workspace.changed (not workspace.save.failed)
//	workspace.**       matches workspace.changed and workspace.save.failed
//	*.save.failed      matches workspace.save.failed
//	**                 matches everything
package topic
