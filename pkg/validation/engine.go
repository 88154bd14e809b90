// Package validation scores field values against their configuration:
// required flags, widget-kind shape checks, and named custom validators.
// Section results only count fields that are currently visible; a hidden
// field keeps its value but contributes nothing to the error map.
package validation

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/formstate"
	"github.com/goliatone/go-formwizard/pkg/metadata"
	"github.com/goliatone/go-formwizard/pkg/visibility"
)

// CustomValidator is a named validation hook referenced from field metadata.
// It receives the candidate value plus a snapshot of the whole form for
// cross-field rules.
type CustomValidator func(value any, state map[string]any) error

// FieldError is one validation failure, recoverable by editing the field.
type FieldError struct {
	FieldID string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("validation: field %q: %s", e.FieldID, e.Message)
}

// Result aggregates per-field errors for a section or step. Warnings carry
// non-blocking diagnostics, e.g. a field naming a validator that was never
// registered; they do not affect Valid.
type Result struct {
	Valid    bool
	Errors   map[string]string
	Warnings map[string]string
}

// ErrorCount returns the number of failing fields.
func (r Result) ErrorCount() int {
	return len(r.Errors)
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Option customises the engine.
type Option func(*Engine)

// WithCustomValidator registers a named validator hook.
func WithCustomValidator(name string, fn CustomValidator) Option {
	return func(e *Engine) {
		if name == "" || fn == nil {
			return
		}
		e.custom[name] = fn
	}
}

// WithLogger overrides the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine validates fields and sections.
type Engine struct {
	custom map[string]CustomValidator
	logger *slog.Logger
}

// New constructs a validation engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		custom: make(map[string]CustomValidator),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// ValidateField checks one field: required, then widget-kind shape, then the
// custom hook. A nil return means the value passes.
func (e *Engine) ValidateField(cfg *metadata.FieldConfig, value any, state map[string]any) *FieldError {
	if cfg == nil {
		return nil
	}
	if formstate.Unset(value) {
		if cfg.Required {
			return &FieldError{FieldID: cfg.ID, Message: requiredMessage(cfg)}
		}
		return nil
	}

	if err := shapeError(cfg, value); err != nil {
		return err
	}

	if cfg.Validator != "" {
		fn, ok := e.custom[cfg.Validator]
		if !ok {
			e.logger.Warn("custom validator is not registered", "field", cfg.ID, "validator", cfg.Validator)
			return nil
		}
		if err := fn(value, state); err != nil {
			return &FieldError{FieldID: cfg.ID, Message: err.Error()}
		}
	}
	return nil
}

// ValidateSection scores every currently visible field of a section.
func (e *Engine) ValidateSection(ix *metadata.Indices, sectionID string, state map[string]any) Result {
	return e.ValidateFields(ix, ix.SectionFields(sectionID), state)
}

// ValidateFields scores the given fields, skipping hidden ones.
func (e *Engine) ValidateFields(ix *metadata.Indices, fieldIDs []string, state map[string]any) Result {
	result := Result{Valid: true, Errors: make(map[string]string)}
	for _, id := range fieldIDs {
		cfg, ok := ix.Fields[id]
		if !ok {
			continue
		}
		if !ix.FieldVisible(cfg, state) {
			continue
		}
		if err := e.ValidateField(cfg, state[id], state); err != nil {
			result.Valid = false
			result.Errors[id] = err.Message
		}
		if warn := e.validatorWarning(cfg); warn != "" {
			if result.Warnings == nil {
				result.Warnings = make(map[string]string)
			}
			result.Warnings[id] = warn
		}
	}
	return result
}

// validatorWarning reports a field whose named validator has no registration.
// The field still validates (required and shape checks apply), so this is a
// diagnostic, not an error.
func (e *Engine) validatorWarning(cfg *metadata.FieldConfig) string {
	if cfg.Validator == "" {
		return ""
	}
	if _, ok := e.custom[cfg.Validator]; ok {
		return ""
	}
	return fmt.Sprintf("validator %q is not registered", cfg.Validator)
}

// shapeError applies the widget-kind type check. The switch is exhaustive
// over the widget catalog; kinds without a shape constraint fall through, and
// WidgetUnknown deliberately accepts anything.
func shapeError(cfg *metadata.FieldConfig, value any) *FieldError {
	switch cfg.Widget {
	case metadata.WidgetNumber:
		if _, ok := numeric(value); !ok {
			return &FieldError{FieldID: cfg.ID, Message: "must be a number"}
		}
	case metadata.WidgetEmail:
		if !emailPattern.MatchString(strings.TrimSpace(visibility.Stringify(value))) {
			return &FieldError{FieldID: cfg.ID, Message: "must be a valid email address"}
		}
	case metadata.WidgetURL:
		raw := strings.TrimSpace(visibility.Stringify(value))
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return &FieldError{FieldID: cfg.ID, Message: "must be a valid URL"}
		}
	case metadata.WidgetText, metadata.WidgetTextarea, metadata.WidgetSelect,
		metadata.WidgetMultiSelect, metadata.WidgetCheckbox, metadata.WidgetRadio,
		metadata.WidgetDate, metadata.WidgetPassword, metadata.WidgetFile,
		metadata.WidgetUnknown:
	}
	return nil
}

func numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func requiredMessage(cfg *metadata.FieldConfig) string {
	label := cfg.Label
	if label == "" {
		label = cfg.ID
	}
	return label + " is required"
}
