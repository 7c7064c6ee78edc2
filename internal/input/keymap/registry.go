package keymap

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/sitesmith/internal/input/key"
)

// ConditionTextInputFocus is true when focus is in a native text control.
const ConditionTextInputFocus = "textInputFocus"

// textInputTags are element tags whose native key handling must be preserved.
var textInputTags = map[string]bool{
	"input":    true,
	"textarea": true,
	"select":   true,
}

// Registry manages all keymaps and provides binding lookup.
type Registry struct {
	mu sync.RWMutex

	// keymaps holds all registered keymaps by name.
	keymaps map[string]*ParsedKeymap

	// index maps a platform and canonical key string to candidate bindings.
	index map[key.Platform]map[string][]indexEntry

	// conditionEvaluator evaluates "when" conditions.
	conditionEvaluator ConditionEvaluator
}

type indexEntry struct {
	Binding *ParsedBinding
	Keymap  *Keymap
}

// ConditionEvaluator evaluates binding conditions.
type ConditionEvaluator interface {
	// Evaluate evaluates a condition expression against the current context.
	Evaluate(condition string, ctx *Context) bool
}

// Context describes where a key event happened.
type Context struct {
	// Platform decides what "mod" means.
	Platform key.Platform

	// FocusTag is the lowercase tag name of the focused element
	// ("body", "input", "textarea", ...).
	FocusTag string

	// Editable is true when the focused element is contenteditable.
	Editable bool

	// Conditions holds extra condition values.
	Conditions map[string]bool

	// Variables holds context variables for "==" comparisons.
	Variables map[string]string
}

// TextInputFocus reports whether focus is in a text-editing element.
func (c *Context) TextInputFocus() bool {
	return c.Editable || textInputTags[strings.ToLower(c.FocusTag)]
}

// Condition returns the value of a named condition.
func (c *Context) Condition(name string) bool {
	if name == ConditionTextInputFocus {
		return c.TextInputFocus()
	}
	return c.Conditions[name]
}

// Variable returns the value of a named variable.
func (c *Context) Variable(name string) (string, bool) {
	switch name {
	case "focusTag":
		return strings.ToLower(c.FocusTag), true
	case "platform":
		return c.Platform.String(), true
	}
	v, ok := c.Variables[name]
	return v, ok
}

// NewRegistry creates a new keymap registry.
func NewRegistry() *Registry {
	return &Registry{
		keymaps: make(map[string]*ParsedKeymap),
		index: map[key.Platform]map[string][]indexEntry{
			key.PlatformMac:   {},
			key.PlatformOther: {},
		},
		conditionEvaluator: &DefaultConditionEvaluator{},
	}
}

// Register adds a keymap to the registry.
// If a keymap with the same name already exists, it is replaced.
func (r *Registry) Register(km *Keymap) error {
	if km == nil {
		return fmt.Errorf("cannot register nil keymap")
	}

	parsed, err := km.Parse()
	if err != nil {
		return fmt.Errorf("parsing keymap %q: %w", km.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.keymaps[km.Name] = parsed
	r.reindexLocked()
	return nil
}

// Unregister removes a keymap from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keymaps[name]; !ok {
		return
	}
	delete(r.keymaps, name)
	r.reindexLocked()
}

// reindexLocked rebuilds the lookup index. Caller must hold the write lock.
func (r *Registry) reindexLocked() {
	for _, p := range []key.Platform{key.PlatformMac, key.PlatformOther} {
		idx := make(map[string][]indexEntry)
		for _, km := range r.keymaps {
			for i := range km.ParsedBindings {
				pb := &km.ParsedBindings[i]
				s := pb.Event(p).String()
				idx[s] = append(idx[s], indexEntry{Binding: pb, Keymap: km.Keymap})
			}
		}
		r.index[p] = idx
	}
}

// Get returns a keymap by name.
func (r *Registry) Get(name string) *ParsedKeymap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keymaps[name]
}

// Lookup finds the best matching binding for a key event.
// If ctx is nil, an empty context (non-mac, nothing focused) is used.
func (r *Registry) Lookup(ev key.Event, ctx *Context) (*Binding, bool) {
	matches := r.LookupAll(ev, ctx)
	if len(matches) == 0 {
		return nil, false
	}
	b := matches[0].Binding
	return &b, true
}

// LookupAll finds all matching bindings for a key event, best first.
func (r *Registry) LookupAll(ev key.Event, ctx *Context) []BindingMatch {
	if ctx == nil {
		ctx = &Context{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.findMatches(ev, ctx)
}

// findMatches finds all matches and sorts by priority.
func (r *Registry) findMatches(ev key.Event, ctx *Context) []BindingMatch {
	entries := r.index[ctx.Platform][ev.Normalize().String()]
	matches := make([]BindingMatch, 0, len(entries))

	for _, entry := range entries {
		if entry.Binding.When != "" && !r.conditionEvaluator.Evaluate(entry.Binding.When, ctx) {
			continue
		}
		match := BindingMatch{
			ParsedBinding: entry.Binding,
			Keymap:        entry.Keymap,
		}
		match.CalculateScore()
		matches = append(matches, match)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Less(matches[j])
	})

	return matches
}

// Keymaps returns all registered keymaps sorted by name.
func (r *Registry) Keymaps() []*ParsedKeymap {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*ParsedKeymap, 0, len(r.keymaps))
	for _, km := range r.keymaps {
		result = append(result, km)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Bindings returns the effective bindings, one per key and condition, with
// keys shown as they appear on p. Overridden bindings are omitted.
func (r *Registry) Bindings(p key.Platform) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.index[p]))
	for k := range r.index[p] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var result []Binding
	for _, k := range keys {
		matches := make([]BindingMatch, 0)
		for _, entry := range r.index[p][k] {
			m := BindingMatch{ParsedBinding: entry.Binding, Keymap: entry.Keymap}
			m.CalculateScore()
			matches = append(matches, m)
		}
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].Less(matches[j])
		})

		seen := make(map[string]bool)
		for _, m := range matches {
			if seen[m.When] {
				continue
			}
			seen[m.When] = true
			b := m.Binding
			b.Keys = k
			result = append(result, b)
		}
	}
	return result
}

// DefaultConditionEvaluator provides basic condition evaluation.
type DefaultConditionEvaluator struct{}

// Evaluate evaluates a condition expression.
// Supports: condition, !condition, condition1 && condition2, condition1 || condition2,
// variable == value
func (e *DefaultConditionEvaluator) Evaluate(condition string, ctx *Context) bool {
	if condition == "" {
		return true
	}
	return e.evaluateExpr(condition, ctx)
}

func (e *DefaultConditionEvaluator) evaluateExpr(expr string, ctx *Context) bool {
	// OR binds loosest
	if left, right, ok := strings.Cut(expr, "||"); ok {
		return e.evaluateExpr(strings.TrimSpace(left), ctx) ||
			e.evaluateExpr(strings.TrimSpace(right), ctx)
	}

	if left, right, ok := strings.Cut(expr, "&&"); ok {
		return e.evaluateExpr(strings.TrimSpace(left), ctx) &&
			e.evaluateExpr(strings.TrimSpace(right), ctx)
	}

	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "!") {
		return !e.evaluateExpr(expr[1:], ctx)
	}

	if left, right, ok := strings.Cut(expr, "=="); ok {
		val, found := ctx.Variable(strings.TrimSpace(left))
		return found && val == strings.TrimSpace(right)
	}

	return ctx.Condition(expr)
}
