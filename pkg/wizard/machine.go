// Package wizard sequences form sections into ordered steps with gated
// forward navigation: moving forward requires the active step's visible
// fields to validate, moving backward is always free, and jumping is only
// allowed into territory already earned.
package wizard

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formwizard/pkg/metadata"
	"github.com/goliatone/go-formwizard/pkg/validation"
)

// ErrFirstStep is returned by Previous on step 0.
var ErrFirstStep = errors.New("wizard: already on the first step")

// StepInvalidError reports a blocked forward transition. The step keeps its
// Result so callers can surface the per-field error map; the failure is local
// and recoverable, it never ends the session.
type StepInvalidError struct {
	Index  int
	Result validation.Result
}

func (e *StepInvalidError) Error() string {
	return fmt.Sprintf("wizard: step %d has %d invalid fields", e.Index, e.Result.ErrorCount())
}

// StepLockedError rejects a jump into a step that has not been reached or
// completed. Message is written for direct display to the user.
type StepLockedError struct {
	Index int
}

func (e *StepLockedError) Error() string {
	return fmt.Sprintf("wizard: complete the current step before jumping to step %d", e.Index+1)
}

// Step is one wizard step, derived 1:1 from a form section.
type Step struct {
	Index    int
	Section  *metadata.FormSection
	FieldIDs []string
	Result   validation.Result
}

// ValidateFunc scores a step's visible fields against current state.
type ValidateFunc func(step *Step) validation.Result

// Machine walks steps 0..N-1 plus an implicit terminal completed state once
// the last step passes validation.
type Machine struct {
	steps     []*Step
	current   int
	completed map[int]bool
	done      bool
	validate  ValidateFunc
}

// New derives steps from the indices' ordered sections.
func New(ix *metadata.Indices, validate ValidateFunc) (*Machine, error) {
	if ix == nil {
		return nil, errors.New("wizard: indices are required")
	}
	if validate == nil {
		return nil, errors.New("wizard: validate func is required")
	}
	sections := ix.SectionsInOrder()
	if len(sections) == 0 {
		return nil, errors.New("wizard: metadata declares no sections")
	}
	steps := make([]*Step, 0, len(sections))
	for i, sec := range sections {
		steps = append(steps, &Step{
			Index:    i,
			Section:  sec,
			FieldIDs: ix.SectionFields(sec.ID),
		})
	}
	return &Machine{
		steps:     steps,
		completed: make(map[int]bool),
		validate:  validate,
	}, nil
}

// RefreshFields re-derives each step's field subset after a metadata merge,
// e.g. when a lazily loaded section delivers its groups and fields.
func (m *Machine) RefreshFields(ix *metadata.Indices) {
	if ix == nil {
		return
	}
	for _, step := range m.steps {
		step.FieldIDs = ix.SectionFields(step.Section.ID)
	}
}

// Steps returns all steps in order.
func (m *Machine) Steps() []*Step {
	return append([]*Step(nil), m.steps...)
}

// Current returns the active step.
func (m *Machine) Current() *Step {
	return m.steps[m.current]
}

// CurrentIndex returns the active step index.
func (m *Machine) CurrentIndex() int {
	return m.current
}

// Completed reports whether the step at index has passed validation.
func (m *Machine) Completed(index int) bool {
	return m.completed[index]
}

// Done reports whether the final step has passed, i.e. the wizard reached its
// terminal state.
func (m *Machine) Done() bool {
	return m.done
}

// Next validates the active step. On failure the machine stays in place and
// the returned StepInvalidError carries the error map. On success the step is
// marked completed and the machine advances, or flips to done when the active
// step was the last one.
func (m *Machine) Next() (*Step, error) {
	step := m.steps[m.current]
	step.Result = m.validate(step)
	if !step.Result.Valid {
		return step, &StepInvalidError{Index: step.Index, Result: step.Result}
	}
	m.completed[m.current] = true
	if m.current == len(m.steps)-1 {
		m.done = true
		return step, nil
	}
	m.current++
	return m.steps[m.current], nil
}

// Previous steps back without re-validating and without un-marking
// completion.
func (m *Machine) Previous() (*Step, error) {
	if m.current == 0 {
		return m.steps[0], ErrFirstStep
	}
	m.current--
	return m.steps[m.current], nil
}

// JumpTo moves directly to index when it lies at or behind the current step,
// or names a step already completed. Anything else is rejected and the
// machine stays put.
func (m *Machine) JumpTo(index int) (*Step, error) {
	if index < 0 || index >= len(m.steps) {
		return m.steps[m.current], fmt.Errorf("wizard: step %d does not exist", index)
	}
	if index > m.current && !m.completed[index] {
		return m.steps[m.current], &StepLockedError{Index: index}
	}
	m.current = index
	return m.steps[m.current], nil
}
