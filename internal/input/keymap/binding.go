package keymap

import (
	"github.com/dshills/sitesmith/internal/input/key"
)

// Binding represents a single key-to-action mapping.
type Binding struct {
	// Keys is the shortcut that triggers this binding.
	// Formats: "?", "mod+z", "Ctrl+Shift+Z", "<C-s>"
	Keys string `json:"keys" toml:"keys"`

	// Action is the command to execute.
	// Examples: "history.undo", "project.save", "help.toggle"
	Action string `json:"action" toml:"action"`

	// When is a condition expression that must be true for this binding.
	// Examples: "!textInputFocus", "focusTag == body"
	When string `json:"when,omitempty" toml:"when"`

	// Description provides documentation for the binding.
	Description string `json:"description,omitempty" toml:"description"`

	// Priority determines precedence when multiple bindings match.
	// Higher priority wins. Default is 0.
	Priority int `json:"priority,omitempty" toml:"priority"`

	// Category groups bindings for display purposes.
	Category string `json:"category,omitempty" toml:"category"`
}

// NewBinding creates a new binding with the given keys and action.
func NewBinding(keys, action string) Binding {
	return Binding{
		Keys:   keys,
		Action: action,
	}
}

// WithWhen sets the condition for this binding.
func (b Binding) WithWhen(when string) Binding {
	b.When = when
	return b
}

// WithDescription sets the description for this binding.
func (b Binding) WithDescription(desc string) Binding {
	b.Description = desc
	return b
}

// WithPriority sets the priority for this binding.
func (b Binding) WithPriority(priority int) Binding {
	b.Priority = priority
	return b
}

// WithCategory sets the category for this binding.
func (b Binding) WithCategory(category string) Binding {
	b.Category = category
	return b
}

// ParsedBinding is a binding with its keys resolved for each platform.
type ParsedBinding struct {
	Binding
	Mac   key.Event
	Other key.Event
}

// Event returns the key event that triggers the binding on p.
func (pb *ParsedBinding) Event(p key.Platform) key.Event {
	if p == key.PlatformMac {
		return pb.Mac
	}
	return pb.Other
}

// Match checks if ev triggers this binding on p.
func (pb *ParsedBinding) Match(ev key.Event, p key.Platform) bool {
	if pb == nil {
		return false
	}
	return pb.Event(p).Equals(ev)
}

// BindingMatch represents a matched binding with its context.
type BindingMatch struct {
	// Binding is the matched binding.
	*ParsedBinding

	// Keymap is the keymap containing the binding.
	Keymap *Keymap

	// Score is used for sorting matches by priority.
	Score int
}

// Less returns true if this match should come before another.
// Higher scores come first.
func (bm BindingMatch) Less(other BindingMatch) bool {
	if bm.Keymap == nil {
		return false
	}
	if other.Keymap == nil {
		return true
	}
	return bm.Score > other.Score
}

// CalculateScore calculates the priority score for this match.
func (bm *BindingMatch) CalculateScore() {
	if bm.Keymap == nil || bm.ParsedBinding == nil {
		bm.Score = 0
		return
	}

	// Base score from keymap priority
	bm.Score = bm.Keymap.Priority * 100

	// Add binding priority
	bm.Score += bm.ParsedBinding.Priority

	// Bonus for conditional bindings
	if bm.ParsedBinding.When != "" {
		bm.Score += 50
	}
}

// BindingCategory represents a category of bindings for display.
type BindingCategory struct {
	Name     string    `json:"name"`
	Bindings []Binding `json:"bindings"`
}

// GroupByCategory groups bindings by their category.
func GroupByCategory(bindings []Binding) []BindingCategory {
	categoryMap := make(map[string][]Binding)
	order := make([]string, 0)

	for _, b := range bindings {
		cat := b.Category
		if cat == "" {
			cat = "Other"
		}
		if _, exists := categoryMap[cat]; !exists {
			order = append(order, cat)
		}
		categoryMap[cat] = append(categoryMap[cat], b)
	}

	result := make([]BindingCategory, 0, len(order))
	for _, name := range order {
		result = append(result, BindingCategory{
			Name:     name,
			Bindings: categoryMap[name],
		})
	}
	return result
}
