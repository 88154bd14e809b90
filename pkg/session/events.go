package session

import "github.com/goliatone/go-formwizard/pkg/formstate"

// Listener receives the engine's outbound events. These four events are the
// whole contract the rendering, persistence, and analysis layers consume.
type Listener interface {
	FormDataChanged(change formstate.Change)
	StepCompleted(stepIndex int)
	StepNavigation(from, to int)
	ValidationFailed(errors map[string]string)
}

// ListenerFuncs adapts plain functions into a Listener; nil fields are
// skipped.
type ListenerFuncs struct {
	OnFormDataChanged  func(change formstate.Change)
	OnStepCompleted    func(stepIndex int)
	OnStepNavigation   func(from, to int)
	OnValidationFailed func(errors map[string]string)
}

// FormDataChanged implements Listener.
func (l ListenerFuncs) FormDataChanged(change formstate.Change) {
	if l.OnFormDataChanged != nil {
		l.OnFormDataChanged(change)
	}
}

// StepCompleted implements Listener.
func (l ListenerFuncs) StepCompleted(stepIndex int) {
	if l.OnStepCompleted != nil {
		l.OnStepCompleted(stepIndex)
	}
}

// StepNavigation implements Listener.
func (l ListenerFuncs) StepNavigation(from, to int) {
	if l.OnStepNavigation != nil {
		l.OnStepNavigation(from, to)
	}
}

// ValidationFailed implements Listener.
func (l ListenerFuncs) ValidationFailed(errors map[string]string) {
	if l.OnValidationFailed != nil {
		l.OnValidationFailed(errors)
	}
}
