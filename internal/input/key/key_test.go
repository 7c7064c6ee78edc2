package key

import (
	"testing"
)

func TestKeyString(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{KeyNone, "None"},
		{KeyEscape, "Escape"},
		{KeyEnter, "Enter"},
		{KeyBackspace, "Backspace"},
		{KeyUp, "Up"},
		{KeyF1, "F1"},
		{KeyF12, "F12"},
		{KeyRune, "Rune"},
		{Key(999), "Key(999)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("Key.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyClassification(t *testing.T) {
	if KeyRune.IsSpecial() || KeyNone.IsSpecial() {
		t.Error("KeyRune and KeyNone should not be special")
	}
	if !KeyEscape.IsSpecial() {
		t.Error("KeyEscape should be special")
	}
	if !KeyF5.IsFunctionKey() || KeyUp.IsFunctionKey() {
		t.Error("IsFunctionKey misclassified F5 or Up")
	}
	if !KeyLeft.IsArrowKey() || KeyHome.IsArrowKey() {
		t.Error("IsArrowKey misclassified Left or Home")
	}
}

func TestKeyFromName(t *testing.T) {
	tests := []struct {
		name string
		want Key
	}{
		{"Escape", KeyEscape},
		{"esc", KeyEscape},
		{"RETURN", KeyEnter},
		{"ArrowUp", KeyUp},
		{"pgdn", KeyPageDown},
		{"f10", KeyF10},
		{"bogus", KeyNone},
	}

	for _, tt := range tests {
		if got := KeyFromName(tt.name); got != tt.want {
			t.Errorf("KeyFromName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestModifierString(t *testing.T) {
	tests := []struct {
		mod  Modifier
		want string
	}{
		{ModNone, ""},
		{ModCtrl, "Ctrl"},
		{ModCtrl | ModShift, "Ctrl+Shift"},
		{ModMeta | ModShift, "Shift+Meta"},
		{ModCtrl | ModAlt | ModShift | ModMeta, "Ctrl+Alt+Shift+Meta"},
	}

	for _, tt := range tests {
		if got := tt.mod.String(); got != tt.want {
			t.Errorf("Modifier(%d).String() = %q, want %q", tt.mod, got, tt.want)
		}
	}
}

func TestModifierWithWithout(t *testing.T) {
	m := ModNone.With(ModCtrl).With(ModShift)
	if !m.HasCtrl() || !m.HasShift() || m.HasAlt() || m.HasMeta() {
		t.Errorf("With() = %v, want Ctrl+Shift", m)
	}
	m = m.Without(ModCtrl)
	if m != ModShift {
		t.Errorf("Without(ModCtrl) = %v, want Shift", m)
	}
	if !ModNone.IsEmpty() || m.IsEmpty() {
		t.Error("IsEmpty() mismatch")
	}
}

func TestPlatformModifierFromName(t *testing.T) {
	tests := []struct {
		platform Platform
		name     string
		want     Modifier
	}{
		{PlatformMac, "mod", ModMeta},
		{PlatformOther, "mod", ModCtrl},
		{PlatformMac, "Mod", ModMeta},
		{PlatformMac, "cmdOrCtrl", ModMeta},
		{PlatformMac, "ctrl", ModCtrl},
		{PlatformOther, "cmd", ModMeta},
		{PlatformOther, "option", ModAlt},
		{PlatformOther, "hyper", ModNone},
	}

	for _, tt := range tests {
		if got := tt.platform.ModifierFromName(tt.name); got != tt.want {
			t.Errorf("%v.ModifierFromName(%q) = %v, want %v", tt.platform, tt.name, got, tt.want)
		}
	}
}

func TestParseModifiers(t *testing.T) {
	tests := []struct {
		in   string
		want Modifier
	}{
		{"Ctrl+Alt", ModCtrl | ModAlt},
		{"C-S", ModCtrl | ModShift},
		{"meta", ModMeta},
		{"mod+shift", ModCtrl | ModShift},
		{"", ModNone},
	}

	for _, tt := range tests {
		if got := ParseModifiers(tt.in); got != tt.want {
			t.Errorf("ParseModifiers(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlatformDetection(t *testing.T) {
	tests := []struct {
		in   string
		want Platform
	}{
		{"mac", PlatformMac},
		{"Darwin", PlatformMac},
		{"windows", PlatformOther},
		{"", PlatformOther},
	}
	for _, tt := range tests {
		if got := ParsePlatform(tt.in); got != tt.want {
			t.Errorf("ParsePlatform(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	mac := "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15"
	win := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	if got := PlatformFromUserAgent(mac); got != PlatformMac {
		t.Errorf("PlatformFromUserAgent(mac) = %v, want mac", got)
	}
	if got := PlatformFromUserAgent(win); got != PlatformOther {
		t.Errorf("PlatformFromUserAgent(windows) = %v, want other", got)
	}
}
