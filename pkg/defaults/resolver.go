// Package defaults fills unset fields from sibling values through a
// priority-ordered rule table. The resolver only ever writes fields that are
// currently undefined, so it cannot fight the user, the formula engine, or a
// loaded record.
package defaults

import (
	"sort"

	"github.com/goliatone/go-formwizard/pkg/formstate"
)

// Rule derives a default for one field from current state. Resolve returns
// false when no default applies for the present state.
type Rule struct {
	FieldID  string
	Priority int
	Resolve  func(state map[string]any) (any, bool)
}

// Resolver applies rules lowest Priority first; rules sharing a priority keep
// registration order.
type Resolver struct {
	rules []Rule
}

// New constructs a resolver over the given rules.
func New(rules ...Rule) *Resolver {
	r := &Resolver{}
	for _, rule := range rules {
		r.Add(rule)
	}
	return r
}

// Add registers a rule, keeping the table sorted by priority.
func (r *Resolver) Add(rule Rule) {
	if rule.FieldID == "" || rule.Resolve == nil {
		return
	}
	r.rules = append(r.rules, rule)
	sort.SliceStable(r.rules, func(i, j int) bool {
		return r.rules[i].Priority < r.rules[j].Priority
	})
}

// Apply computes every applicable default in one pass and returns them as a
// single batch. Rules see earlier rules' results, so a chain of defaults
// settles within the pass. Re-running against unchanged state yields an empty
// batch: every field a rule could fill is already set.
func (r *Resolver) Apply(state map[string]any) formstate.Change {
	if len(r.rules) == 0 {
		return nil
	}
	view := make(map[string]any, len(state))
	for k, v := range state {
		view[k] = v
	}
	change := make(formstate.Change)
	for _, rule := range r.rules {
		if !formstate.Unset(view[rule.FieldID]) {
			continue
		}
		value, ok := rule.Resolve(view)
		if !ok || formstate.Unset(value) {
			continue
		}
		change[rule.FieldID] = value
		view[rule.FieldID] = value
	}
	if len(change) == 0 {
		return nil
	}
	return change
}
