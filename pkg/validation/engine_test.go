package validation

import (
	"errors"
	"testing"

	"github.com/goliatone/go-formwizard/pkg/metadata"
)

func sectionIndices(t *testing.T) *metadata.Indices {
	t.Helper()
	return metadata.ParseItems([]metadata.Item{
		{Type: "section", ID: "account", Order: 1},
		{Type: "group", ID: "main", SectionID: "account", Order: 1},
		{Type: "email", ID: "email", SectionID: "account", GroupID: "main", Required: true},
		{Type: "text", ID: "company", SectionID: "account", GroupID: "main", Required: true,
			WatchField: "accountType", ShowWhen: "business"},
		{Type: "text", ID: "accountType", SectionID: "account", GroupID: "main"},
	})
}

func TestValidateFieldRequired(t *testing.T) {
	t.Parallel()

	engine := New()
	cfg := &metadata.FieldConfig{ID: "name", Label: "Name", Widget: metadata.WidgetText, Required: true}

	if err := engine.ValidateField(cfg, "", nil); err == nil {
		t.Fatalf("expected required error")
	}
	if err := engine.ValidateField(cfg, "ok", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateFieldShapes(t *testing.T) {
	t.Parallel()

	engine := New()
	cases := []struct {
		name   string
		widget metadata.WidgetKind
		value  any
		wantOK bool
	}{
		{"number ok", metadata.WidgetNumber, "12.5", true},
		{"number bad", metadata.WidgetNumber, "12abc", false},
		{"email ok", metadata.WidgetEmail, "a@b.co", true},
		{"email bad", metadata.WidgetEmail, "not-an-email", false},
		{"url ok", metadata.WidgetURL, "https://example.com/x", true},
		{"url bad", metadata.WidgetURL, "://nope", false},
		{"unknown accepts anything", metadata.WidgetUnknown, "???", true},
	}
	for _, tc := range cases {
		cfg := &metadata.FieldConfig{ID: "f", Widget: tc.widget}
		err := engine.ValidateField(cfg, tc.value, nil)
		if tc.wantOK && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.wantOK && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestValidateFieldCustomHook(t *testing.T) {
	t.Parallel()

	engine := New(WithCustomValidator("noAcme", func(value any, state map[string]any) error {
		if value == "acme" {
			return errors.New("acme is reserved")
		}
		return nil
	}))
	cfg := &metadata.FieldConfig{ID: "company", Widget: metadata.WidgetText, Validator: "noAcme"}

	if err := engine.ValidateField(cfg, "acme", nil); err == nil {
		t.Fatalf("expected custom validator to fail")
	}
	if err := engine.ValidateField(cfg, "other", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnregisteredValidatorWarnsWithoutFailing(t *testing.T) {
	t.Parallel()

	ix := metadata.ParseItems([]metadata.Item{
		{Type: "section", ID: "s", Order: 1},
		{Type: "group", ID: "g", SectionID: "s", Order: 1},
		{Type: "text", ID: "company", SectionID: "s", GroupID: "g", Validator: "missingHook"},
	})
	engine := New()

	result := engine.ValidateSection(ix, "s", map[string]any{"company": "acme"})
	if !result.Valid || result.ErrorCount() != 0 {
		t.Fatalf("unregistered validator must not fail the field, got %v", result.Errors)
	}
	if _, ok := result.Warnings["company"]; !ok {
		t.Fatalf("expected a warning on company, got %v", result.Warnings)
	}
}

// A field hidden by its predicate keeps its value but contributes nothing to
// the section's error count.
func TestHiddenFieldExcludedFromSectionErrors(t *testing.T) {
	t.Parallel()

	ix := sectionIndices(t)
	engine := New()

	// company is required and empty, but hidden while accountType != business.
	state := map[string]any{"email": "a@b.co", "accountType": "personal", "company": ""}
	result := engine.ValidateSection(ix, "account", state)
	if !result.Valid || result.ErrorCount() != 0 {
		t.Fatalf("hidden field must not be scored, got %v", result.Errors)
	}

	// Reveal it: now the retained empty value fails.
	state["accountType"] = "business"
	result = engine.ValidateSection(ix, "account", state)
	if result.Valid || result.ErrorCount() != 1 {
		t.Fatalf("expected exactly one error, got %v", result.Errors)
	}
	if _, ok := result.Errors["company"]; !ok {
		t.Fatalf("error should be on company, got %v", result.Errors)
	}
}

func TestValidateSectionRequiredMissing(t *testing.T) {
	t.Parallel()

	ix := sectionIndices(t)
	engine := New()

	result := engine.ValidateSection(ix, "account", map[string]any{"accountType": "personal"})
	if result.Valid {
		t.Fatalf("expected invalid result")
	}
	if _, ok := result.Errors["email"]; !ok {
		t.Fatalf("expected email error, got %v", result.Errors)
	}
}
