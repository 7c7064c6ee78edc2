package keymap

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// Keymap names and priorities used by the application layers.
const (
	DefaultKeymapName = "default"
	UserKeymapName    = "user"

	userPriority = 10
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadFile loads a keymap from a JSON file.
func LoadFile(path string) (*Keymap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening keymap file: %w", err)
	}
	defer f.Close()

	return LoadReader(f)
}

// LoadReader loads a keymap from a reader.
//
//	{"name": "team", "priority": 5, "bindings": [{"keys": "mod+k", "action": "palette.show"}]}
func LoadReader(r io.Reader) (*Keymap, error) {
	var km Keymap
	if err := json.NewDecoder(r).Decode(&km); err != nil {
		return nil, fmt.Errorf("decoding keymap: %w", err)
	}
	if km.Name == "" {
		return nil, fmt.Errorf("decoding keymap: missing name")
	}
	if err := km.Validate(); err != nil {
		return nil, fmt.Errorf("keymap %q: %w", km.Name, err)
	}
	return &km, nil
}

// NewUserKeymap builds the keymap for user-configured bindings. It outranks
// the defaults, so a user binding with the same keys and condition replaces
// the default one.
func NewUserKeymap(bindings []Binding) *Keymap {
	km := NewKeymap(UserKeymapName).WithPriority(userPriority).WithSource("user")
	for _, b := range bindings {
		km.AddBinding(b)
	}
	return km
}

// ApplyUserBindings replaces the user keymap in r. An empty list removes it.
func ApplyUserBindings(r *Registry, bindings []Binding) error {
	if len(bindings) == 0 {
		r.Unregister(UserKeymapName)
		return nil
	}
	return r.Register(NewUserKeymap(bindings))
}
