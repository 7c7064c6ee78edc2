package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Parse errors
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Parse parses a key specification for a non-mac client.
// See ParseFor.
func Parse(spec string) (Event, error) {
	return ParseFor(spec, PlatformOther)
}

// ParseFor parses a key specification string into an Event, resolving "mod"
// for the given platform.
//
// Supported formats:
//   - Single character: "a", "A", "1", "?"
//   - Special keys: "Enter", "Escape", "Tab", "Backspace", "Space"
//   - With modifiers: "Ctrl+S", "Alt+F4", "mod+Shift+Z"
//   - Vim-style: "<C-s>", "<A-f>", "<C-S-p>", "<CR>", "<Esc>"
//
// A lone uppercase letter implies Shift. With explicit modifiers the letter
// case is ignored, so "Ctrl+S" is Ctrl and s.
func ParseFor(spec string, p Platform) (Event, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Event{}, ErrEmptySpec
	}

	if len(spec) > 2 && strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">") {
		return parseVimStyle(spec[1:len(spec)-1], p)
	}

	if len(spec) > 1 && strings.Contains(spec, "+") {
		return parseModifierStyle(spec, p)
	}

	return parseSingle(spec)
}

// parseVimStyle parses Vim-style notation like "C-s", "A-F4", "CR", "Esc"
func parseVimStyle(inner string, p Platform) (Event, error) {
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return Event{}, ErrInvalidSpec
	}

	parts := strings.Split(inner, "-")
	keyPart := parts[len(parts)-1]

	var mods Modifier
	for _, part := range parts[:len(parts)-1] {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "c":
			mods = mods.With(ModCtrl)
		case "a":
			mods = mods.With(ModAlt)
		case "s":
			mods = mods.With(ModShift)
		case "m", "d": // D is Vim's notation for Command/Meta
			mods = mods.With(ModMeta)
		default:
			mod := p.ModifierFromName(part)
			if mod == ModNone {
				return Event{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, part)
			}
			mods = mods.With(mod)
		}
	}

	return parseKeyWithModifiers(keyPart, mods)
}

// parseModifierStyle parses "Ctrl+S" style notation
func parseModifierStyle(spec string, p Platform) (Event, error) {
	parts := strings.Split(spec, "+")

	var mods Modifier
	for _, part := range parts[:len(parts)-1] {
		part = strings.TrimSpace(part)
		mod := p.ModifierFromName(part)
		if mod == ModNone {
			return Event{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, part)
		}
		mods = mods.With(mod)
	}

	return parseKeyWithModifiers(parts[len(parts)-1], mods)
}

// parseSingle parses a single character or key name
func parseSingle(spec string) (Event, error) {
	if key := KeyFromName(spec); key != KeyNone {
		return NewSpecialEvent(key, ModNone), nil
	}
	if r, ok := runeAliases[strings.ToLower(spec)]; ok {
		return NewRuneEvent(r, ModNone), nil
	}

	runes := []rune(spec)
	if len(runes) == 1 {
		r := runes[0]
		var mods Modifier
		// Uppercase letters have implicit Shift
		if unicode.IsUpper(r) {
			mods = ModShift
		}
		return NewRuneEvent(r, mods), nil
	}

	return Event{}, fmt.Errorf("%w: %q", ErrInvalidSpec, spec)
}

// parseKeyWithModifiers parses a key part with already-known modifiers
func parseKeyWithModifiers(keyPart string, mods Modifier) (Event, error) {
	keyPart = strings.TrimSpace(keyPart)
	if keyPart == "" {
		return Event{}, ErrInvalidSpec
	}

	if key := KeyFromName(keyPart); key != KeyNone {
		return NewSpecialEvent(key, mods), nil
	}
	if r, ok := runeAliases[strings.ToLower(keyPart)]; ok {
		return NewRuneEvent(r, mods), nil
	}

	runes := []rune(keyPart)
	if len(runes) == 1 {
		return NewRuneEvent(runes[0], mods), nil
	}

	return Event{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, keyPart)
}

// MustParse parses a key specification and panics on error.
// Use only for known-valid specs in initialization code.
func MustParse(spec string) Event {
	event, err := Parse(spec)
	if err != nil {
		panic("invalid key specification: " + spec + ": " + err.Error())
	}
	return event
}

// NormalizeSpec parses and re-formats a key specification to its canonical
// form for the given platform.
func NormalizeSpec(spec string, p Platform) (string, error) {
	event, err := ParseFor(spec, p)
	if err != nil {
		return "", err
	}
	return event.String(), nil
}
