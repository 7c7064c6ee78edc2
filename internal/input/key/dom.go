package key

import "strings"

// DOMEvent mirrors the fields of a browser KeyboardEvent that shortcut
// routing needs. JSON names follow the DOM property names.
type DOMEvent struct {
	Key      string `json:"key"`
	Code     string `json:"code,omitempty"`
	CtrlKey  bool   `json:"ctrlKey,omitempty"`
	MetaKey  bool   `json:"metaKey,omitempty"`
	AltKey   bool   `json:"altKey,omitempty"`
	ShiftKey bool   `json:"shiftKey,omitempty"`
}

// domKeyNames maps KeyboardEvent.key values that differ from our key names.
var domKeyNames = map[string]Key{
	"ArrowUp":    KeyUp,
	"ArrowDown":  KeyDown,
	"ArrowLeft":  KeyLeft,
	"ArrowRight": KeyRight,
	"Esc":        KeyEscape,
	"Del":        KeyDelete,
}

// modifierKeys are reported as key presses but never form shortcuts.
var modifierKeys = map[string]bool{
	"Shift":    true,
	"Control":  true,
	"Alt":      true,
	"AltGraph": true,
	"Meta":     true,
	"OS":       true,
	"CapsLock": true,
}

// Modifiers returns the modifier set reported by the event.
func (d DOMEvent) Modifiers() Modifier {
	var mods Modifier
	if d.CtrlKey {
		mods = mods.With(ModCtrl)
	}
	if d.MetaKey {
		mods = mods.With(ModMeta)
	}
	if d.AltKey {
		mods = mods.With(ModAlt)
	}
	if d.ShiftKey {
		mods = mods.With(ModShift)
	}
	return mods
}

// FromDOM converts a browser keyboard event into a normalized Event.
// It returns false for events that cannot be a shortcut, such as a bare
// modifier press or an IME composition ("Process", "Dead", "Unidentified").
func FromDOM(d DOMEvent) (Event, bool) {
	if d.Key == "" || modifierKeys[d.Key] {
		return Event{}, false
	}
	mods := d.Modifiers()

	if k, ok := domKeyNames[d.Key]; ok {
		return NewSpecialEvent(k, mods), true
	}

	runes := []rune(d.Key)
	if len(runes) == 1 {
		r := runes[0]
		// Alt on macOS replaces the letter (Alt+Z reports "Ω"); the physical
		// key code still names it.
		if mods.HasAlt() {
			if letter, ok := letterFromCode(d.Code); ok {
				r = letter
			}
		}
		return NewRuneEvent(r, mods), true
	}

	if k := KeyFromName(d.Key); k != KeyNone {
		return NewSpecialEvent(k, mods), true
	}
	return Event{}, false
}

// letterFromCode extracts the letter from a KeyboardEvent.code like "KeyZ".
func letterFromCode(code string) (rune, bool) {
	if len(code) != 4 || !strings.HasPrefix(code, "Key") {
		return 0, false
	}
	c := rune(code[3])
	if c < 'A' || c > 'Z' {
		return 0, false
	}
	return c, true
}
