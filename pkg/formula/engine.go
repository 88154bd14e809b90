// Package formula recomputes calculated fields from the rest of the form
// state. Expressions reference sibling fields by id and are evaluated with
// expr-lang; a broken formula degrades to the field's typed zero value
// instead of failing the edit that triggered it.
package formula

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/goliatone/go-formwizard/pkg/formstate"
	"github.com/goliatone/go-formwizard/pkg/metadata"
)

// Option customises the engine.
type Option func(*Engine)

// WithLogger overrides the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine evaluates formulas with a compiled-program cache. The zero Engine is
// not usable; construct with New.
type Engine struct {
	mu       sync.Mutex
	programs map[string]*vm.Program
	logger   *slog.Logger

	recomputing atomic.Bool
}

// New constructs a formula engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		programs: make(map[string]*vm.Program),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// Evaluate runs a formula against a state snapshot. The result is whatever
// the expression produces (number, string, or bool). Unparseable expressions
// and missing references return an error; callers decide the fallback.
func (e *Engine) Evaluate(formula string, state map[string]any) (any, error) {
	if formula == "" {
		return nil, fmt.Errorf("formula: expression is empty")
	}
	program, err := e.compile(formula)
	if err != nil {
		return nil, fmt.Errorf("formula: compile %q: %w", formula, err)
	}
	out, err := expr.Run(program, env(state))
	if err != nil {
		return nil, fmt.Errorf("formula: eval %q: %w", formula, err)
	}
	return out, nil
}

// Recompute evaluates every calculated field and returns the writes whose
// results differ from the stored values. The dirty check is what keeps the
// write→recompute cycle from looping: an unchanged result produces no write,
// so no further change event. A recompute that arrives while one is already
// running is dropped, bounding the work to one call per change.
//
// Within the call, evaluation sweeps to a fixpoint over a working view so a
// formula referencing another calculated field settles regardless of map
// iteration order. Non-cyclic chains converge in at most one sweep per link;
// a cycle stops when a sweep produces no new value.
func (e *Engine) Recompute(ix *metadata.Indices, state map[string]any) formstate.Change {
	if ix == nil {
		return nil
	}
	if !e.recomputing.CompareAndSwap(false, true) {
		return nil
	}
	defer e.recomputing.Store(false)

	calculated := make(map[string]*metadata.FieldConfig)
	for id, field := range ix.Fields {
		if field.Calculated() {
			calculated[id] = field
		}
	}
	if len(calculated) == 0 {
		return nil
	}

	view := make(map[string]any, len(state))
	for k, v := range state {
		view[k] = v
	}

	change := make(formstate.Change)
	for sweep := 0; sweep < len(calculated); sweep++ {
		dirty := false
		for id, field := range calculated {
			value, err := e.Evaluate(field.Computed.Formula, view)
			if err != nil {
				value = ZeroValue(field.Widget)
				e.logger.Warn("formula evaluation degraded to zero value",
					"field", id, "error", err)
			}
			if stored, ok := view[id]; ok && formstate.Equal(stored, value) {
				continue
			} else if !ok && value == nil {
				continue
			}
			view[id] = value
			change[id] = value
			dirty = true
		}
		if !dirty {
			break
		}
	}
	if len(change) == 0 {
		return nil
	}
	return change
}

// ZeroValue is the typed fallback for a failed evaluation: 0 for numeric
// widgets, false for checkboxes, "" for everything else.
func ZeroValue(kind metadata.WidgetKind) any {
	switch kind {
	case metadata.WidgetNumber:
		return float64(0)
	case metadata.WidgetCheckbox:
		return false
	default:
		return ""
	}
}

func (e *Engine) compile(formula string) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if program, ok := e.programs[formula]; ok {
		return program, nil
	}
	program, err := expr.Compile(formula)
	if err != nil {
		return nil, err
	}
	e.programs[formula] = program
	return program, nil
}

// env copies the snapshot so an expression with side-effecting helpers could
// never write through to live state.
func env(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}
