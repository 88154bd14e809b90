package options

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/metadata"
)

func staticField(id, url string) *metadata.FieldConfig {
	return &metadata.FieldConfig{
		ID:     id,
		Widget: metadata.WidgetSelect,
		Remote: &metadata.RemoteOptions{URL: url},
	}
}

func TestLoadIndependentBatchesAndMemoizes(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[{"label":"One","value":1},{"label":"Two","value":2}]`))
	}))
	defer server.Close()

	loader := New()
	fields := []*metadata.FieldConfig{
		staticField("a", server.URL+"/a"),
		staticField("b", server.URL+"/b"),
	}

	batch := loader.LoadIndependent(context.Background(), fields)
	if len(batch) != 2 {
		t.Fatalf("expected 2 entries in batch, got %d", len(batch))
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected 2 fetches, got %d", got)
	}

	// Second load serves from cache.
	batch = loader.LoadIndependent(context.Background(), fields)
	if len(batch) != 2 {
		t.Fatalf("cached batch incomplete: %v", batch)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("memoized fields must not refetch, got %d fetches", got)
	}
}

func TestLoadIndependentFailureIsolated(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[{"label":"Ok","value":"ok"}]`))
	}))
	defer server.Close()

	loader := New()
	batch := loader.LoadIndependent(context.Background(), []*metadata.FieldConfig{
		staticField("good", server.URL+"/good"),
		staticField("bad", server.URL+"/bad"),
	})

	if len(batch["good"]) != 1 {
		t.Fatalf("healthy sibling must load, got %v", batch["good"])
	}
	if got, ok := batch["bad"]; !ok || len(got) != 0 {
		t.Fatalf("failed field must fall back to empty set, got %v (present=%v)", got, ok)
	}
}

func TestLoadDependentMemoizedPerParentValue(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"data":[{"label":"City of ` + r.URL.Query().Get("value") + `","value":"c1"}]}`))
	}))
	defer server.Close()

	loader := New()
	field := &metadata.FieldConfig{
		ID:     "city",
		Widget: metadata.WidgetSelect,
		Remote: &metadata.RemoteOptions{URL: server.URL + "/cities", DependsOn: "state"},
	}

	for i := 0; i < 2; i++ {
		if _, err := loader.LoadDependent(context.Background(), field, "X"); err != nil {
			t.Fatalf("LoadDependent returned error: %v", err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("same (field,parent) pair must fetch once, got %d", got)
	}

	if _, err := loader.LoadDependent(context.Background(), field, "Y"); err != nil {
		t.Fatalf("LoadDependent returned error: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("new parent value must fetch, got %d", got)
	}

	// Back to X: still cached.
	if _, err := loader.LoadDependent(context.Background(), field, "X"); err != nil {
		t.Fatalf("LoadDependent returned error: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("returning to cached parent must not refetch, got %d", got)
	}
}

func TestLoadDependentUnsetParentClears(t *testing.T) {
	t.Parallel()

	loader := New()
	field := &metadata.FieldConfig{
		ID:     "city",
		Remote: &metadata.RemoteOptions{URL: "http://invalid.test/{value}", DependsOn: "state"},
	}
	opts, err := loader.LoadDependent(context.Background(), field, "")
	if err != nil {
		t.Fatalf("unset parent must not error: %v", err)
	}
	if opts == nil || len(opts) != 0 {
		t.Fatalf("unset parent must clear options, got %v", opts)
	}
}

func TestDecodeLabelTemplateAndSanitize(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"code":"US","name":"<b>United States</b>"}]`))
	}))
	defer server.Close()

	loader := New()
	field := &metadata.FieldConfig{
		ID: "country",
		Remote: &metadata.RemoteOptions{
			URL:           server.URL,
			ValueField:    "code",
			LabelTemplate: "{name} ({code})",
		},
	}
	batch := loader.LoadIndependent(context.Background(), []*metadata.FieldConfig{field})
	want := []metadata.Option{{Label: "United States (US)", Value: "US"}}
	if diff := cmp.Diff(want, batch["country"]); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveURL(t *testing.T) {
	t.Parallel()

	if got := resolveURL("/api/cities/{value}", "new york"); got != "/api/cities/new+york" {
		t.Fatalf("token substitution wrong: %q", got)
	}
	if got := resolveURL("/api/cities", "x"); got != "/api/cities?value=x" {
		t.Fatalf("appended query wrong: %q", got)
	}
}

func TestRetryDropsMemo(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	loader := New()
	field := staticField("a", server.URL)
	loader.LoadIndependent(context.Background(), []*metadata.FieldConfig{field})
	loader.Retry(field, nil)
	loader.LoadIndependent(context.Background(), []*metadata.FieldConfig{field})
	if got := hits.Load(); got != 2 {
		t.Fatalf("retry must refetch, got %d fetches", got)
	}
}
