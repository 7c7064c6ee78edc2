// Package key provides key event types and parsing for workspace shortcuts.
//
// This package defines the fundamental types for representing keyboard input:
//
//   - Key: Identifies a keyboard key (special keys, function keys, or runes)
//   - Modifier: Represents modifier keys (Ctrl, Alt, Shift, Meta)
//   - Event: A single key press with modifiers
//   - Platform: Decides what the "mod" modifier means
//
// # Key Specifications
//
// Key specifications can be written in multiple formats:
//
//   - Simple keys: "a", "?", "Enter", "Escape"
//   - With modifiers: "Ctrl+S", "Alt+F4", "mod+Shift+Z"
//   - Vim-style: "<C-s>", "<A-f>", "<C-S-p>", "<CR>", "<Esc>"
//
// "mod" is the platform command key: Meta (Cmd) on macOS, Ctrl elsewhere.
//
// # Normalization
//
// Letters are stored lowercase with Shift kept as a modifier, so "mod+Shift+Z"
// and a browser event with key "Z" and shiftKey set compare equal. For other
// printable characters Shift is part of the character and is dropped: "?" is
// the same event whether or not the browser reports shiftKey.
package key
