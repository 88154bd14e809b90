// Package openapi converts an OpenAPI operation's request schema into flat
// form metadata, letting an existing API document drive the wizard without
// hand-written descriptors. One operation maps to one section holding one
// group of fields.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formwizard/pkg/metadata"
)

// Option customises the adapter.
type Option func(*Adapter)

// WithResolveReferences allows the underlying loader to follow external refs.
func WithResolveReferences(resolve bool) Option {
	return func(a *Adapter) {
		a.resolveReferences = resolve
	}
}

// Adapter normalizes OpenAPI documents into metadata items.
type Adapter struct {
	resolveReferences bool
}

// New constructs an Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(a)
	}
	return a
}

// Items extracts the operation's JSON request schema and flattens it into
// section, group, and field descriptors ready for metadata.ParseItems.
func (a *Adapter) Items(ctx context.Context, raw []byte, operationID string) ([]metadata.Item, error) {
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	if operationID == "" {
		return nil, errors.New("openapi: operation id is required")
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: a.resolveReferences,
	}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}

	operation, summary := findOperation(spec, operationID)
	if operation == nil {
		return nil, fmt.Errorf("openapi: operation %q not found", operationID)
	}

	schema := requestSchema(operation)
	if schema == nil {
		return nil, fmt.Errorf("openapi: operation %q has no JSON request schema", operationID)
	}

	sectionID := operationID
	groupID := operationID + ".fields"
	title := summary
	if title == "" {
		title = operationID
	}
	items := []metadata.Item{
		{Type: "section", ID: sectionID, Title: title, Order: 1},
		{Type: "group", ID: groupID, SectionID: sectionID, Order: 1},
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop := schema.Properties[name]
		if prop == nil || prop.Value == nil {
			continue
		}
		items = append(items, fieldItem(name, prop.Value, sectionID, groupID, required[name]))
	}
	return items, nil
}

func findOperation(spec *openapi3.T, operationID string) (*openapi3.Operation, string) {
	if spec == nil || spec.Paths == nil {
		return nil, ""
	}
	for _, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for _, op := range item.Operations() {
			if op != nil && op.OperationID == operationID {
				return op, op.Summary
			}
		}
	}
	return nil, ""
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	media := op.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil {
		return nil
	}
	return media.Schema.Value
}

func fieldItem(name string, schema *openapi3.Schema, sectionID, groupID string, required bool) metadata.Item {
	item := metadata.Item{
		Type:      widgetFor(schema),
		ID:        name,
		Label:     labelFor(name, schema),
		SectionID: sectionID,
		GroupID:   groupID,
		Required:  required,
		Default:   schema.Default,
	}
	if len(schema.Enum) > 0 {
		item.Type = string(metadata.WidgetSelect)
		item.Options = make([]metadata.Option, 0, len(schema.Enum))
		for _, value := range schema.Enum {
			item.Options = append(item.Options, metadata.Option{
				Label: fmt.Sprint(value),
				Value: value,
			})
		}
	}
	return item
}

func widgetFor(schema *openapi3.Schema) string {
	types := schema.Type
	if types == nil {
		return string(metadata.WidgetText)
	}
	switch {
	case types.Is(openapi3.TypeInteger), types.Is(openapi3.TypeNumber):
		return string(metadata.WidgetNumber)
	case types.Is(openapi3.TypeBoolean):
		return string(metadata.WidgetCheckbox)
	case types.Is(openapi3.TypeString):
		switch schema.Format {
		case "email":
			return string(metadata.WidgetEmail)
		case "uri", "url":
			return string(metadata.WidgetURL)
		case "date", "date-time":
			return string(metadata.WidgetDate)
		case "password":
			return string(metadata.WidgetPassword)
		}
		return string(metadata.WidgetText)
	default:
		return string(metadata.WidgetText)
	}
}

func labelFor(name string, schema *openapi3.Schema) string {
	if schema.Title != "" {
		return schema.Title
	}
	return name
}
