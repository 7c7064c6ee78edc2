package key

import (
	"errors"
	"testing"
)

func TestParseSingleCharacter(t *testing.T) {
	tests := []struct {
		spec     string
		wantRune rune
		wantMod  Modifier
	}{
		{"a", 'a', ModNone},
		{"A", 'a', ModShift},
		{"1", '1', ModNone},
		{"?", '?', ModNone},
		{"Space", ' ', ModNone},
		{"plus", '+', ModNone},
	}

	for _, tt := range tests {
		event, err := Parse(tt.spec)
		if err != nil {
			t.Errorf("Parse(%q) error = %v", tt.spec, err)
			continue
		}
		if event.Key != KeyRune {
			t.Errorf("Parse(%q) key = %v, want KeyRune", tt.spec, event.Key)
		}
		if event.Rune != tt.wantRune {
			t.Errorf("Parse(%q) rune = %q, want %q", tt.spec, event.Rune, tt.wantRune)
		}
		if event.Modifiers != tt.wantMod {
			t.Errorf("Parse(%q) modifiers = %v, want %v", tt.spec, event.Modifiers, tt.wantMod)
		}
	}
}

func TestParseSpecialKeys(t *testing.T) {
	tests := []struct {
		spec    string
		wantKey Key
	}{
		{"Enter", KeyEnter},
		{"enter", KeyEnter},
		{"Escape", KeyEscape},
		{"Tab", KeyTab},
		{"Backspace", KeyBackspace},
		{"Delete", KeyDelete},
		{"Home", KeyHome},
		{"PageDown", KeyPageDown},
		{"F1", KeyF1},
		{"F12", KeyF12},
	}

	for _, tt := range tests {
		event, err := Parse(tt.spec)
		if err != nil {
			t.Errorf("Parse(%q) error = %v", tt.spec, err)
			continue
		}
		if event.Key != tt.wantKey {
			t.Errorf("Parse(%q) key = %v, want %v", tt.spec, event.Key, tt.wantKey)
		}
	}
}

func TestParseForPlatform(t *testing.T) {
	tests := []struct {
		spec     string
		platform Platform
		wantKey  Key
		wantRune rune
		wantMod  Modifier
	}{
		{"mod+z", PlatformMac, KeyRune, 'z', ModMeta},
		{"mod+z", PlatformOther, KeyRune, 'z', ModCtrl},
		{"mod+Shift+Z", PlatformMac, KeyRune, 'z', ModMeta | ModShift},
		{"mod+Shift+Z", PlatformOther, KeyRune, 'z', ModCtrl | ModShift},
		{"Ctrl+S", PlatformMac, KeyRune, 's', ModCtrl},
		{"Alt+F4", PlatformOther, KeyF4, 0, ModAlt},
		{"Ctrl+Shift+?", PlatformOther, KeyRune, '?', ModCtrl},
		{"<C-s>", PlatformOther, KeyRune, 's', ModCtrl},
		{"<D-S-z>", PlatformMac, KeyRune, 'z', ModMeta | ModShift},
		{"<mod-y>", PlatformMac, KeyRune, 'y', ModMeta},
		{"<CR>", PlatformOther, KeyEnter, 0, ModNone},
		{"Ctrl+Plus", PlatformOther, KeyRune, '+', ModCtrl},
	}

	for _, tt := range tests {
		event, err := ParseFor(tt.spec, tt.platform)
		if err != nil {
			t.Errorf("ParseFor(%q, %v) error = %v", tt.spec, tt.platform, err)
			continue
		}
		if event.Key != tt.wantKey {
			t.Errorf("ParseFor(%q, %v) key = %v, want %v", tt.spec, tt.platform, event.Key, tt.wantKey)
		}
		if event.Rune != tt.wantRune {
			t.Errorf("ParseFor(%q, %v) rune = %q, want %q", tt.spec, tt.platform, event.Rune, tt.wantRune)
		}
		if event.Modifiers != tt.wantMod {
			t.Errorf("ParseFor(%q, %v) modifiers = %v, want %v", tt.spec, tt.platform, event.Modifiers, tt.wantMod)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr error
	}{
		{"", ErrEmptySpec},
		{"   ", ErrEmptySpec},
		{"Hyper+x", ErrInvalidSpec},
		{"<X-s>", ErrInvalidSpec},
		{"Ctrl+", ErrInvalidSpec},
		{"Ctrl+nope", ErrInvalidSpec},
		{"abc", ErrInvalidSpec},
	}

	for _, tt := range tests {
		_, err := Parse(tt.spec)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Parse(%q) error = %v, want %v", tt.spec, err, tt.wantErr)
		}
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse(\"\") did not panic")
		}
	}()
	MustParse("")
}

func TestNormalizeSpec(t *testing.T) {
	tests := []struct {
		spec     string
		platform Platform
		want     string
	}{
		{"mod+shift+z", PlatformMac, "Shift+Meta+Z"},
		{"mod+y", PlatformOther, "Ctrl+Y"},
		{"<C-s>", PlatformOther, "Ctrl+S"},
		{"?", PlatformOther, "?"},
		{"esc", PlatformOther, "Escape"},
		{"Ctrl+Space", PlatformOther, "Ctrl+Space"},
	}

	for _, tt := range tests {
		got, err := NormalizeSpec(tt.spec, tt.platform)
		if err != nil {
			t.Errorf("NormalizeSpec(%q) error = %v", tt.spec, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeSpec(%q) = %q, want %q", tt.spec, got, tt.want)
		}
		// The canonical form parses back to the same event.
		a, _ := ParseFor(tt.spec, tt.platform)
		b, err := ParseFor(got, tt.platform)
		if err != nil || !a.Equals(b) {
			t.Errorf("ParseFor(%q) = %#v, want %#v", got, b, a)
		}
	}
}
