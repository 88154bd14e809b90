package metadata

import "github.com/goliatone/go-formwizard/pkg/visibility"

// WidgetKind is the closed catalog of field widget types. Descriptors carrying
// a type outside the catalog map to WidgetUnknown so consumers can dispatch
// exhaustively with a guaranteed fallback branch.
type WidgetKind string

const (
	WidgetText        WidgetKind = "text"
	WidgetTextarea    WidgetKind = "textarea"
	WidgetNumber      WidgetKind = "number"
	WidgetSelect      WidgetKind = "select"
	WidgetMultiSelect WidgetKind = "multiselect"
	WidgetCheckbox    WidgetKind = "checkbox"
	WidgetRadio       WidgetKind = "radio"
	WidgetDate        WidgetKind = "date"
	WidgetEmail       WidgetKind = "email"
	WidgetURL         WidgetKind = "url"
	WidgetPassword    WidgetKind = "password"
	WidgetFile        WidgetKind = "file"
	WidgetUnknown     WidgetKind = "unknown"
)

var widgetKinds = map[string]WidgetKind{
	"text":        WidgetText,
	"input":       WidgetText,
	"textarea":    WidgetTextarea,
	"number":      WidgetNumber,
	"select":      WidgetSelect,
	"multiselect": WidgetMultiSelect,
	"checkbox":    WidgetCheckbox,
	"switch":      WidgetCheckbox,
	"radio":       WidgetRadio,
	"date":        WidgetDate,
	"email":       WidgetEmail,
	"url":         WidgetURL,
	"password":    WidgetPassword,
	"file":        WidgetFile,
}

// ParseWidgetKind maps a raw descriptor type onto the widget catalog, falling
// back to WidgetUnknown for types the catalog does not know.
func ParseWidgetKind(raw string) WidgetKind {
	if kind, ok := widgetKinds[raw]; ok {
		return kind
	}
	return WidgetUnknown
}

// Option is a single selectable choice, either declared inline in metadata or
// produced by a remote option source.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value any    `json:"value" yaml:"value"`
}

// RemoteOptions describes where and how a field's option list is fetched.
// DependsOn marks the source as dependent: the URL template is re-resolved
// against the parent field's current value on every parent change.
type RemoteOptions struct {
	URL           string
	DependsOn     string
	ValueField    string
	LabelField    string
	LabelTemplate string
}

// Computed marks a field as formula-derived. Only the formula engine writes
// computed fields after their first recompute.
type Computed struct {
	Formula string
}

// FieldConfig is the runtime configuration for one field.
type FieldConfig struct {
	ID           string
	Widget       WidgetKind
	RawType      string
	Label        string
	Required     bool
	Size         int
	SectionID    string
	GroupID      string
	Options      []Option
	Remote       *RemoteOptions
	DefaultValue any
	Predicate    *visibility.Predicate
	Computed     *Computed
	Disabled     bool
	ReadOnly     bool
	Validator    string
	Props        map[string]any
}

// Calculated reports whether the field's value is owned by the formula engine.
func (f *FieldConfig) Calculated() bool {
	return f != nil && f.Computed != nil && f.Computed.Formula != ""
}

// FormGroup is a titled cluster of fields inside a section.
type FormGroup struct {
	ID          string
	Title       string
	SectionID   string
	Order       int
	Size        int
	Collapsible bool
	// Predicates holds every visibility predicate declared for the group.
	// Multiple predicates combine as a logical OR.
	Predicates []*visibility.Predicate
}

// FormSection is a top-level step of the form. RemoteURL, when set, points at
// a lazily loaded metadata document supplying the section's groups and fields.
type FormSection struct {
	ID        string
	Title     string
	Order     int
	Icon      string
	RemoteURL string
}

// Item is one entry of the flat metadata document. Type selects the shape:
// "section", "group", or any widget kind for a field.
type Item struct {
	Type        string         `json:"type" yaml:"type"`
	ID          string         `json:"id" yaml:"id"`
	Title       string         `json:"title,omitempty" yaml:"title,omitempty"`
	Label       string         `json:"label,omitempty" yaml:"label,omitempty"`
	Order       int            `json:"order,omitempty" yaml:"order,omitempty"`
	Size        int            `json:"size,omitempty" yaml:"size,omitempty"`
	Icon        string         `json:"icon,omitempty" yaml:"icon,omitempty"`
	RemoteURL   string         `json:"remoteUrl,omitempty" yaml:"remoteUrl,omitempty"`
	SectionID   string         `json:"sectionId,omitempty" yaml:"sectionId,omitempty"`
	GroupID     string         `json:"groupId,omitempty" yaml:"groupId,omitempty"`
	Collapsible bool           `json:"collapsible,omitempty" yaml:"collapsible,omitempty"`
	Required    bool           `json:"required,omitempty" yaml:"required,omitempty"`
	Options     []Option       `json:"options,omitempty" yaml:"options,omitempty"`
	OptionsURL  string         `json:"optionsUrl,omitempty" yaml:"optionsUrl,omitempty"`
	ValueField  string         `json:"valueField,omitempty" yaml:"valueField,omitempty"`
	LabelField  string         `json:"labelField,omitempty" yaml:"labelField,omitempty"`
	LabelTmpl   string         `json:"labelTemplate,omitempty" yaml:"labelTemplate,omitempty"`
	Default     any            `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	WatchField  string         `json:"watchField,omitempty" yaml:"watchField,omitempty"`
	ShowWhen    any            `json:"showWhen,omitempty" yaml:"showWhen,omitempty"`
	ShowOnMatch *bool          `json:"showOnMatch,omitempty" yaml:"showOnMatch,omitempty"`
	Calculated  bool           `json:"calculated,omitempty" yaml:"calculated,omitempty"`
	Formula     string         `json:"formula,omitempty" yaml:"formula,omitempty"`
	DependsOn   string         `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	DepOptsURL  string         `json:"dependentOptionsUrl,omitempty" yaml:"dependentOptionsUrl,omitempty"`
	Disabled    bool           `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	ReadOnly    bool           `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	Validator   string         `json:"validator,omitempty" yaml:"validator,omitempty"`
	Props       map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
}

const (
	itemTypeSection = "section"
	itemTypeGroup   = "group"
)
