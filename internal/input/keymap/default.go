package keymap

// Actions bound by the default keymap.
const (
	ActionUndo       = "history.undo"
	ActionRedo       = "history.redo"
	ActionSave       = "project.save"
	ActionToggleHelp = "help.toggle"
)

// LoadDefaults loads the default keymap into the registry.
func LoadDefaults(r *Registry) error {
	return r.Register(DefaultKeymap())
}

// DefaultKeymap returns the workspace shortcuts.
func DefaultKeymap() *Keymap {
	return &Keymap{
		Name:   DefaultKeymapName,
		Source: "default",
		Bindings: []Binding{
			// History
			{Keys: "mod+z", Action: ActionUndo, Description: "Undo", Category: "History"},
			{Keys: "mod+shift+z", Action: ActionRedo, Description: "Redo", Category: "History"},
			{Keys: "mod+y", Action: ActionRedo, Description: "Redo", Category: "History"},

			// Project
			{Keys: "mod+s", Action: ActionSave, Description: "Save project", When: "!" + ConditionTextInputFocus, Category: "Project"},

			// Help
			{Keys: "?", Action: ActionToggleHelp, Description: "Show keyboard shortcuts", When: "!" + ConditionTextInputFocus, Category: "Help"},
		},
	}
}
