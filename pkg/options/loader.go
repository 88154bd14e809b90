// Package options resolves remote option lists for select-style fields.
// Independent sources load once per field; dependent sources load once per
// (field, parent value) pair and follow the parent as it changes.
package options

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formwizard/pkg/formstate"
	"github.com/goliatone/go-formwizard/pkg/metadata"
	"github.com/goliatone/go-formwizard/pkg/visibility"
)

// ValueToken is the placeholder in a dependent options URL template that is
// replaced with the parent field's current value.
const ValueToken = "{value}"

const defaultTimeout = 15 * time.Second

// OptionFn customises a Loader.
type OptionFn func(*Loader)

// WithHTTPClient overrides the HTTP client used for fetches.
func WithHTTPClient(client *http.Client) OptionFn {
	return func(l *Loader) {
		if client != nil {
			l.client = client
		}
	}
}

// WithTimeout bounds each individual fetch.
func WithTimeout(timeout time.Duration) OptionFn {
	return func(l *Loader) {
		if timeout > 0 {
			l.timeout = timeout
		}
	}
}

// WithLogger overrides the warning logger.
func WithLogger(logger *slog.Logger) OptionFn {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Loader fetches and memoizes remote option lists. A fetch failure is
// isolated to its field: the field falls back to an empty set with a logged
// warning and the failure never blocks sibling fetches.
type Loader struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
	policy  *bluemonday.Policy

	mu        sync.Mutex
	static    map[string][]metadata.Option
	dependent map[pairKey][]metadata.Option
}

type pairKey struct {
	fieldID string
	parent  string
}

// New constructs a Loader with defaults plus any overrides.
func New(fns ...OptionFn) *Loader {
	l := &Loader{
		client:    http.DefaultClient,
		timeout:   defaultTimeout,
		logger:    slog.Default(),
		policy:    bluemonday.StrictPolicy(),
		static:    make(map[string][]metadata.Option),
		dependent: make(map[pairKey][]metadata.Option),
	}
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(l)
	}
	return l
}

// LoadIndependent fetches every field with a static remote source, in
// parallel, and returns a single batch of fieldID→options so the caller can
// apply the results in one write. Fields already memoized are served from
// cache without a request.
func (l *Loader) LoadIndependent(ctx context.Context, fields []*metadata.FieldConfig) map[string][]metadata.Option {
	batch := make(map[string][]metadata.Option)
	var batchMu sync.Mutex
	var wg sync.WaitGroup

	for _, field := range fields {
		if field == nil || field.Remote == nil || field.Remote.DependsOn != "" || field.Remote.URL == "" {
			continue
		}
		l.mu.Lock()
		cached, ok := l.static[field.ID]
		l.mu.Unlock()
		if ok {
			batch[field.ID] = cached
			continue
		}

		wg.Add(1)
		go func(field *metadata.FieldConfig) {
			defer wg.Done()
			opts, err := l.fetchOptions(ctx, field.Remote.URL, field.Remote)
			if err != nil {
				l.logger.Warn("options fetch failed, using empty set",
					"field", field.ID, "url", field.Remote.URL, "error", err)
				opts = []metadata.Option{}
			}
			l.mu.Lock()
			l.static[field.ID] = opts
			l.mu.Unlock()
			batchMu.Lock()
			batch[field.ID] = opts
			batchMu.Unlock()
		}(field)
	}
	wg.Wait()
	return batch
}

// LoadDependent resolves the option list for a field whose source depends on
// a parent field's value. Results memoize per (field, parent value) pair. An
// unset parent clears the options rather than leaving a stale list.
func (l *Loader) LoadDependent(ctx context.Context, field *metadata.FieldConfig, parentValue any) ([]metadata.Option, error) {
	if field == nil || field.Remote == nil || field.Remote.DependsOn == "" {
		return nil, nil
	}
	if formstate.Unset(parentValue) {
		return []metadata.Option{}, nil
	}

	key := pairKey{fieldID: field.ID, parent: visibility.Stringify(parentValue)}
	l.mu.Lock()
	if cached, ok := l.dependent[key]; ok {
		l.mu.Unlock()
		return cached, nil
	}
	l.mu.Unlock()

	target := resolveURL(field.Remote.URL, key.parent)
	opts, err := l.fetchOptions(ctx, target, field.Remote)
	if err != nil {
		l.logger.Warn("dependent options fetch failed, using empty set",
			"field", field.ID, "parent", key.parent, "url", target, "error", err)
		return []metadata.Option{}, err
	}
	l.mu.Lock()
	l.dependent[key] = opts
	l.mu.Unlock()
	return opts, nil
}

// Retry drops any memoized result for the field (and, for dependent sources,
// the given parent value) so the next load hits the network again.
func (l *Loader) Retry(field *metadata.FieldConfig, parentValue any) {
	if field == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.static, field.ID)
	delete(l.dependent, pairKey{fieldID: field.ID, parent: visibility.Stringify(parentValue)})
}

// resolveURL substitutes the parent value into a dependent URL template. A
// template without the token gets the value appended as a query parameter.
func resolveURL(template, parentValue string) string {
	escaped := url.QueryEscape(parentValue)
	if strings.Contains(template, ValueToken) {
		return strings.ReplaceAll(template, ValueToken, escaped)
	}
	sep := "?"
	if strings.Contains(template, "?") {
		sep = "&"
	}
	return template + sep + "value=" + escaped
}
