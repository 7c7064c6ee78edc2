package key

import (
	"strings"
	"unicode"
)

// Event represents a single key press event.
type Event struct {
	// Key identifies the key pressed.
	Key Key

	// Rune is the character for KeyRune events.
	Rune rune

	// Modifiers contains the active modifier keys.
	Modifiers Modifier
}

// NewRuneEvent creates a normalized key event for a character.
func NewRuneEvent(r rune, mods Modifier) Event {
	return Event{Key: KeyRune, Rune: r, Modifiers: mods}.Normalize()
}

// NewSpecialEvent creates a key event for a special key.
func NewSpecialEvent(key Key, mods Modifier) Event {
	return Event{Key: key, Modifiers: mods}
}

// Normalize returns the canonical form of the event.
// Letters are lowercased and keep Shift. For other characters Shift is
// already reflected in the character and is removed.
func (e Event) Normalize() Event {
	if e.Key != KeyRune {
		return e
	}
	if unicode.IsLetter(e.Rune) {
		e.Rune = unicode.ToLower(e.Rune)
		return e
	}
	e.Modifiers = e.Modifiers.Without(ModShift)
	return e
}

// IsRune returns true if this is a character key event.
func (e Event) IsRune() bool {
	return e.Key == KeyRune && e.Rune != 0
}

// IsChar returns true if this is a printable character.
func (e Event) IsChar() bool {
	return e.IsRune() && unicode.IsPrint(e.Rune)
}

// IsModified returns true if any modifier is pressed.
// For character events, Shift alone is not considered modified
// (since Shift changes the character itself).
func (e Event) IsModified() bool {
	if e.IsRune() {
		return e.Modifiers&(ModCtrl|ModAlt|ModMeta) != 0
	}
	return e.Modifiers != ModNone
}

// IsSpecial returns true if this is a special (non-character) key.
func (e Event) IsSpecial() bool {
	return e.Key.IsSpecial()
}

// String returns a canonical, parseable representation.
// Examples: "a", "?", "Ctrl+S", "Meta+Shift+Z", "Enter", "Alt+F4"
func (e Event) String() string {
	name := e.keyName()
	if e.Key == KeyRune && unicode.IsLetter(e.Rune) && e.Modifiers != ModNone {
		name = strings.ToUpper(name)
	}
	if e.Modifiers == ModNone {
		return name
	}
	return e.Modifiers.String() + "+" + name
}

func (e Event) keyName() string {
	switch e.Key {
	case KeyRune:
		switch e.Rune {
		case ' ':
			return "Space"
		case '+':
			return "Plus"
		}
		return string(e.Rune)
	case KeyNone:
		return ""
	default:
		return e.Key.String()
	}
}

// Equals returns true if two events represent the same key press.
func (e Event) Equals(other Event) bool {
	a, b := e.Normalize(), other.Normalize()
	return a.Key == b.Key &&
		a.Rune == b.Rune &&
		a.Modifiers == b.Modifiers
}

// Matches checks if this event matches a key specification string on the
// given platform.
func (e Event) Matches(spec string, p Platform) bool {
	parsed, err := ParseFor(spec, p)
	if err != nil {
		return false
	}
	return e.Equals(parsed)
}

// WithModifier returns a copy with the specified modifier added.
func (e Event) WithModifier(mod Modifier) Event {
	e.Modifiers = e.Modifiers.With(mod)
	return e.Normalize()
}
