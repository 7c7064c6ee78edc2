// Package keymap maps keyboard shortcuts to workspace actions.
//
// A Keymap is a named collection of bindings. The Registry holds every
// registered keymap and resolves a key event to the single best binding for
// the current focus context.
//
// # Binding Precedence
//
// When multiple bindings match a key event, precedence is determined by:
//  1. Keymap priority (user keymaps outrank defaults)
//  2. Binding priority
//  3. Specificity (bindings with a When condition beat unconditional ones)
//
// # Key Specifications
//
// Keys use the formats accepted by key.ParseFor. "mod" is the platform
// command key, so one binding serves macOS and other clients:
//
//	"mod+z"        - Cmd+Z on macOS, Ctrl+Z elsewhere
//	"mod+shift+z"  - with Shift
//	"?"            - a bare printable character
//
// # Conditional Bindings
//
// Bindings can have conditions that must be met:
//
//	binding := Binding{
//	    Keys:   "mod+s",
//	    Action: "project.save",
//	    When:   "!textInputFocus",
//	}
//
// textInputFocus is true when focus is inside an input, textarea, select or
// contenteditable element, so native text editing keeps its own shortcuts.
//
// # Usage
//
//	registry := keymap.NewRegistry()
//	keymap.LoadDefaults(registry)
//
//	ev, _ := key.FromDOM(domEvent)
//	if b, ok := registry.Lookup(ev, &keymap.Context{Platform: key.PlatformMac, FocusTag: "body"}); ok {
//	    // Execute b.Action
//	}
package keymap
