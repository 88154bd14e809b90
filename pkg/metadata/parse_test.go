package metadata

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func flatItems() []Item {
	return []Item{
		{Type: "section", ID: "shipping", Title: "Shipping", Order: 1},
		{Type: "section", ID: "billing", Title: "Billing", Order: 2},
		{Type: "group", ID: "address", SectionID: "shipping", Order: 2},
		{Type: "group", ID: "contact", SectionID: "shipping", Order: 1},
		{Type: "group", ID: "card", SectionID: "billing", Order: 1},
		{Type: "text", ID: "street", SectionID: "shipping", GroupID: "address"},
		{Type: "text", ID: "city", SectionID: "shipping", GroupID: "address"},
		{Type: "email", ID: "email", SectionID: "shipping", GroupID: "contact", Required: true},
		{Type: "number", ID: "cardNumber", SectionID: "billing", GroupID: "card"},
	}
}

func TestParseItemsIndices(t *testing.T) {
	t.Parallel()

	ix := ParseItems(flatItems())

	if got := len(ix.Sections); got != 2 {
		t.Fatalf("expected 2 sections, got %d", got)
	}
	if got := len(ix.Groups); got != 3 {
		t.Fatalf("expected 3 groups, got %d", got)
	}
	if got := len(ix.Fields); got != 4 {
		t.Fatalf("expected 4 fields, got %d", got)
	}

	// contact declares order 1, address order 2.
	wantGroups := []string{"contact", "address"}
	if diff := cmp.Diff(wantGroups, ix.SectionGroups["shipping"]); diff != "" {
		t.Fatalf("section groups mismatch (-want +got):\n%s", diff)
	}

	wantFields := []string{"street", "city"}
	if diff := cmp.Diff(wantFields, ix.GroupFields["address"]); diff != "" {
		t.Fatalf("group fields mismatch (-want +got):\n%s", diff)
	}
}

func TestParseItemsOrderIndependent(t *testing.T) {
	t.Parallel()

	items := flatItems()
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 10; trial++ {
		shuffled := append([]Item(nil), items...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		ix := ParseItems(shuffled)
		for _, want := range items {
			if want.Type == "section" || want.Type == "group" {
				continue
			}
			field, ok := ix.Fields[want.ID]
			if !ok {
				t.Fatalf("trial %d: field %q missing", trial, want.ID)
			}
			if field.SectionID != want.SectionID || field.GroupID != want.GroupID {
				t.Fatalf("trial %d: field %q parented (%q,%q), want (%q,%q)",
					trial, want.ID, field.SectionID, field.GroupID, want.SectionID, want.GroupID)
			}
			found := false
			for _, id := range ix.GroupFields[want.GroupID] {
				if id == want.ID {
					found = true
				}
			}
			if !found {
				t.Fatalf("trial %d: field %q not attached to group %q", trial, want.ID, want.GroupID)
			}
		}
	}
}

func TestMergeAugmentsLateSection(t *testing.T) {
	t.Parallel()

	// Fields and group arrive before the section they belong to.
	ix := ParseItems([]Item{
		{Type: "group", ID: "specs", SectionID: "details", Order: 1},
		{Type: "text", ID: "model", SectionID: "details", GroupID: "specs"},
	})

	if got := len(ix.Errors()); got != 1 {
		t.Fatalf("expected 1 unresolved error, got %d", got)
	}
	if got := len(ix.SectionGroups["details"]); got != 0 {
		t.Fatalf("group attached before section arrived")
	}
	if _, ok := ix.Fields["model"]; !ok {
		t.Fatalf("unresolved field was dropped; it must be retained")
	}

	ix.Merge([]Item{
		{Type: "section", ID: "details", Title: "Details", Order: 1},
		{Type: "text", ID: "serial", SectionID: "details", GroupID: "specs"},
	})

	if got := len(ix.Errors()); got != 0 {
		t.Fatalf("expected no errors after merge, got %v", ix.Errors())
	}
	if diff := cmp.Diff([]string{"specs"}, ix.SectionGroups["details"]); diff != "" {
		t.Fatalf("section groups mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"model", "serial"}, ix.GroupFields["specs"]); diff != "" {
		t.Fatalf("group fields mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeSameSectionAugmentsNotReplaces(t *testing.T) {
	t.Parallel()

	ix := ParseItems([]Item{
		{Type: "section", ID: "main", Order: 1},
		{Type: "group", ID: "g1", SectionID: "main", Order: 1},
		{Type: "text", ID: "a", SectionID: "main", GroupID: "g1"},
	})

	ix.Merge([]Item{
		{Type: "section", ID: "main", Title: "Main", Order: 1},
		{Type: "group", ID: "g2", SectionID: "main", Order: 2},
		{Type: "text", ID: "b", SectionID: "main", GroupID: "g2"},
	})

	if diff := cmp.Diff([]string{"g1", "g2"}, ix.SectionGroups["main"]); diff != "" {
		t.Fatalf("existing group was lost on re-parse (-want +got):\n%s", diff)
	}
	if _, ok := ix.Fields["a"]; !ok {
		t.Fatalf("existing field was lost on re-parse")
	}
	if ix.Sections["main"].Title != "Main" {
		t.Fatalf("section title not augmented")
	}
}

func TestSectionsInOrder(t *testing.T) {
	t.Parallel()

	ix := ParseItems([]Item{
		{Type: "section", ID: "c", Order: 3},
		{Type: "section", ID: "a", Order: 1},
		{Type: "section", ID: "b", Order: 2},
	})
	got := make([]string, 0, 3)
	for _, sec := range ix.SectionsInOrder() {
		got = append(got, sec.ID)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Fatalf("section order mismatch (-want +got):\n%s", diff)
	}
}

func TestParseWidgetKindFallback(t *testing.T) {
	t.Parallel()

	if got := ParseWidgetKind("holographic-picker"); got != WidgetUnknown {
		t.Fatalf("expected WidgetUnknown, got %q", got)
	}
	if got := ParseWidgetKind("number"); got != WidgetNumber {
		t.Fatalf("expected WidgetNumber, got %q", got)
	}
}

func TestMissingIDRecorded(t *testing.T) {
	t.Parallel()

	ix := ParseItems([]Item{{Type: "text"}})
	errs := ix.Errors()
	if len(errs) != 1 || errs[0].Reason != ReasonMissingID {
		t.Fatalf("expected one missing-id error, got %v", errs)
	}
}
