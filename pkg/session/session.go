// Package session wires the parsed metadata, form state, and the engines
// around them into one disposable workflow instance. It owns the debounce
// timers and async fetches, and guarantees none of them outlive Dispose.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goliatone/go-formwizard/pkg/defaults"
	"github.com/goliatone/go-formwizard/pkg/formstate"
	"github.com/goliatone/go-formwizard/pkg/formula"
	"github.com/goliatone/go-formwizard/pkg/metadata"
	"github.com/goliatone/go-formwizard/pkg/options"
	"github.com/goliatone/go-formwizard/pkg/record"
	"github.com/goliatone/go-formwizard/pkg/validation"
	"github.com/goliatone/go-formwizard/pkg/visibility"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// changeKey coalesces form-data broadcasts behind a single debounce timer.
const changeKey = "@form"

// Option customises session construction.
type Option func(*Session)

// WithLogger overrides the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFormulaEngine injects a custom formula engine.
func WithFormulaEngine(engine *formula.Engine) Option {
	return func(s *Session) {
		if engine != nil {
			s.formula = engine
		}
	}
}

// WithValidationEngine injects a custom validation engine.
func WithValidationEngine(engine *validation.Engine) Option {
	return func(s *Session) {
		if engine != nil {
			s.validator = engine
		}
	}
}

// WithOptionsLoader injects a custom option loader.
func WithOptionsLoader(loader *options.Loader) Option {
	return func(s *Session) {
		if loader != nil {
			s.loader = loader
		}
	}
}

// WithDefaultRules registers smart-default rules.
func WithDefaultRules(rules ...defaults.Rule) Option {
	return func(s *Session) {
		for _, rule := range rules {
			s.smart.Add(rule)
		}
	}
}

// WithRecord configures initial-state seeding from a record endpoint. The URL
// may carry {token} placeholders resolved from the navigation context.
func WithRecord(client *record.Client, urlTemplate string, nav map[string]string) Option {
	return func(s *Session) {
		s.recordClient = client
		s.recordURL = urlTemplate
		s.recordNav = nav
	}
}

// WithSeed seeds initial state directly, taking the place of a record load.
func WithSeed(seed map[string]any) Option {
	return func(s *Session) {
		s.seed = seed
	}
}

// WithDebounce overrides the validation/broadcast debounce interval.
func WithDebounce(delay time.Duration) Option {
	return func(s *Session) {
		if delay > 0 {
			s.debounce = delay
		}
	}
}

// WithListener registers an event listener.
func WithListener(listener Listener) Option {
	return func(s *Session) {
		if listener != nil {
			s.listeners = append(s.listeners, listener)
		}
	}
}

// Session is one live form workflow: state, engines, wizard, timers.
type Session struct {
	ix        *metadata.Indices
	state     *formstate.Store
	graph     *visibility.Graph
	formula   *formula.Engine
	validator *validation.Engine
	loader    *options.Loader
	machine   *wizard.Machine
	smart     *defaults.Resolver
	analysis  *AnalysisContext
	logger    *slog.Logger

	recordClient *record.Client
	recordURL    string
	recordNav    map[string]string
	seed         map[string]any
	debounce     time.Duration

	validateDebounce *validation.Debouncer
	changeDebounce   *validation.Debouncer

	pendingMu     sync.Mutex
	pendingChange formstate.Change

	optMu        sync.RWMutex
	fieldOptions map[string][]metadata.Option
	optGen       map[string]uint64
	dependents   map[string][]string

	ctx       context.Context
	cancel    context.CancelFunc
	listeners []Listener
}

// New builds a session over parsed metadata. Initial state comes from the
// configured record endpoint when present, else from field defaults, else
// empty; computed fields recompute once right after seeding.
func New(ctx context.Context, ix *metadata.Indices, opts ...Option) (*Session, error) {
	if ix == nil {
		return nil, errors.New("session: indices are required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s := &Session{
		ix:           ix,
		logger:       slog.Default(),
		smart:        defaults.New(),
		analysis:     &AnalysisContext{},
		debounce:     validation.DefaultDebounce,
		fieldOptions: make(map[string][]metadata.Option),
		optGen:       make(map[string]uint64),
		dependents:   make(map[string][]string),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.formula == nil {
		s.formula = formula.New(formula.WithLogger(s.logger))
	}
	if s.validator == nil {
		s.validator = validation.New(validation.WithLogger(s.logger))
	}
	if s.loader == nil {
		s.loader = options.New(options.WithLogger(s.logger))
	}

	seed, err := s.resolveSeed(ctx)
	if err != nil {
		return nil, err
	}
	s.state = formstate.New(seed)
	s.graph = ix.BuildGraph()
	s.indexDependents()

	machine, err := wizard.New(ix, func(step *wizard.Step) validation.Result {
		return s.validator.ValidateFields(s.ix, step.FieldIDs, s.state.Snapshot())
	})
	if err != nil {
		return nil, err
	}
	s.machine = machine

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.validateDebounce = validation.NewDebouncer(s.debounce, s.revalidate)
	s.changeDebounce = validation.NewDebouncer(s.debounce, func(string) { s.broadcast() })
	s.state.Subscribe(func(change formstate.Change) {
		s.pendingMu.Lock()
		if s.pendingChange == nil {
			s.pendingChange = make(formstate.Change, len(change))
		}
		for k, v := range change {
			s.pendingChange[k] = v
		}
		s.pendingMu.Unlock()
		s.changeDebounce.Trigger(changeKey)
	})

	// Settle formulas and smart defaults against the seeded state.
	s.state.ApplyBatch(s.formula.Recompute(s.ix, s.state.Snapshot()))
	s.state.ApplyBatch(s.smart.Apply(s.state.Snapshot()))

	return s, nil
}

// SetField applies one user edit and runs the full reaction chain: formula
// recompute, smart defaults, dependent option reloads, then debounced
// validation of the field and everything watching it.
func (s *Session) SetField(fieldID string, value any) {
	if s.disposed() {
		return
	}
	s.state.Set(fieldID, value)
	s.state.ApplyBatch(s.formula.Recompute(s.ix, s.state.Snapshot()))
	s.state.ApplyBatch(s.smart.Apply(s.state.Snapshot()))
	s.reloadDependents(fieldID, value)
	s.validateDebounce.Trigger(fieldID)
}

// Value reads one field.
func (s *Session) Value(fieldID string) (any, bool) {
	return s.state.Get(fieldID)
}

// Values snapshots the whole form state.
func (s *Session) Values() map[string]any {
	return s.state.Snapshot()
}

// Visible reports whether a field is currently shown.
func (s *Session) Visible(fieldID string) bool {
	cfg, ok := s.ix.Fields[fieldID]
	if !ok {
		return false
	}
	return s.ix.FieldVisible(cfg, s.state.Snapshot())
}

// Options returns the current option list for a field: a loaded remote list
// when present, the inline list otherwise.
func (s *Session) Options(fieldID string) []metadata.Option {
	s.optMu.RLock()
	loaded, ok := s.fieldOptions[fieldID]
	s.optMu.RUnlock()
	if ok {
		return loaded
	}
	if cfg, found := s.ix.Fields[fieldID]; found {
		return cfg.Options
	}
	return nil
}

// PrimeOptions loads every independent remote option source in parallel and
// applies the results as one batch.
func (s *Session) PrimeOptions(ctx context.Context) {
	if s.disposed() {
		return
	}
	if ctx == nil {
		ctx = s.ctx
	}
	fields := make([]*metadata.FieldConfig, 0, len(s.ix.Fields))
	for _, cfg := range s.ix.Fields {
		fields = append(fields, cfg)
	}
	batch := s.loader.LoadIndependent(ctx, fields)
	if s.disposed() || len(batch) == 0 {
		return
	}
	s.optMu.Lock()
	for fieldID, opts := range batch {
		s.fieldOptions[fieldID] = opts
	}
	s.optMu.Unlock()
}

// RetryOptions drops the memoized result for a field and fetches again, for
// surfaces that expose a manual retry after a degraded fetch.
func (s *Session) RetryOptions(ctx context.Context, fieldID string) {
	cfg, ok := s.ix.Fields[fieldID]
	if !ok || cfg.Remote == nil || s.disposed() {
		return
	}
	if ctx == nil {
		ctx = s.ctx
	}
	parent, _ := s.state.Get(cfg.Remote.DependsOn)
	s.loader.Retry(cfg, parent)
	if cfg.Remote.DependsOn != "" {
		s.optMu.Lock()
		s.optGen[fieldID]++
		gen := s.optGen[fieldID]
		s.optMu.Unlock()
		s.reloadDependent(ctx, cfg, parent, gen)
		return
	}
	batch := s.loader.LoadIndependent(ctx, []*metadata.FieldConfig{cfg})
	if s.disposed() {
		return
	}
	s.optMu.Lock()
	for id, opts := range batch {
		s.fieldOptions[id] = opts
	}
	s.optMu.Unlock()
}

// MergeMetadata folds a late-arriving (lazily loaded) metadata document into
// the session: indices augment, the dependency graph rebuilds, and wizard
// steps pick up their new fields.
func (s *Session) MergeMetadata(items []metadata.Item) {
	if s.disposed() {
		return
	}
	s.ix.Merge(items)
	s.graph = s.ix.BuildGraph()
	s.indexDependents()
	s.machine.RefreshFields(s.ix)

	seed := make(formstate.Change)
	snapshot := s.state.Snapshot()
	for id, cfg := range s.ix.Fields {
		if cfg.DefaultValue == nil {
			continue
		}
		if _, ok := snapshot[id]; !ok {
			seed[id] = cfg.DefaultValue
		}
	}
	s.state.ApplyBatch(seed)
}

// Next advances the wizard when the active step validates; a failed step
// stays put and emits the error map.
func (s *Session) Next() (*wizard.Step, error) {
	if s.disposed() {
		return nil, errors.New("session: disposed")
	}
	from := s.machine.CurrentIndex()
	step, err := s.machine.Next()
	if err != nil {
		var invalid *wizard.StepInvalidError
		if errors.As(err, &invalid) {
			s.emitValidationFailed(invalid.Result.Errors)
		}
		return step, err
	}
	s.emitStepCompleted(from)
	if s.machine.Done() {
		return step, nil
	}
	s.emitStepNavigation(from, s.machine.CurrentIndex())
	return step, nil
}

// Previous steps back without re-validating.
func (s *Session) Previous() (*wizard.Step, error) {
	if s.disposed() {
		return nil, errors.New("session: disposed")
	}
	from := s.machine.CurrentIndex()
	step, err := s.machine.Previous()
	if err != nil {
		return step, err
	}
	s.emitStepNavigation(from, s.machine.CurrentIndex())
	return step, nil
}

// JumpTo moves to a reachable step; locked steps reject with a user-facing
// message and leave the wizard unchanged.
func (s *Session) JumpTo(index int) (*wizard.Step, error) {
	if s.disposed() {
		return nil, errors.New("session: disposed")
	}
	from := s.machine.CurrentIndex()
	step, err := s.machine.JumpTo(index)
	if err != nil {
		return step, err
	}
	if from != s.machine.CurrentIndex() {
		s.emitStepNavigation(from, s.machine.CurrentIndex())
	}
	return step, nil
}

// Wizard exposes the underlying machine for read-mostly consumers.
func (s *Session) Wizard() *wizard.Machine {
	return s.machine
}

// Indices exposes the parsed metadata model.
func (s *Session) Indices() *metadata.Indices {
	return s.ix
}

// Analysis returns the session's AI-analysis chaining context.
func (s *Session) Analysis() *AnalysisContext {
	return s.analysis
}

// Flush forces pending debounced work (validation, change broadcast) to run
// now. Step transitions validate synchronously regardless; Flush exists for
// callers that need the events before the timers would fire.
func (s *Session) Flush() {
	if s.disposed() {
		return
	}
	s.validateDebounce.Flush()
	s.changeDebounce.Flush()
}

// Dispose cancels pending timers and fetches and closes the state store.
// Results of in-flight work arriving later are discarded.
func (s *Session) Dispose() {
	s.cancel()
	s.validateDebounce.Close()
	s.changeDebounce.Close()
	s.state.Close()
	s.analysis.Reset()
}

func (s *Session) disposed() bool {
	return s.ctx != nil && s.ctx.Err() != nil
}

func (s *Session) resolveSeed(ctx context.Context) (map[string]any, error) {
	seed := make(map[string]any)
	switch {
	case s.seed != nil:
		for k, v := range s.seed {
			seed[k] = v
		}
	case s.recordClient != nil && s.recordURL != "":
		loaded, err := s.recordClient.Load(ctx, s.recordURL, s.recordNav)
		if err != nil {
			return nil, fmt.Errorf("session: seed from record: %w", err)
		}
		for k, v := range loaded {
			seed[k] = v
		}
	}
	for id, cfg := range s.ix.Fields {
		if cfg.DefaultValue == nil {
			continue
		}
		if _, ok := seed[id]; !ok {
			seed[id] = cfg.DefaultValue
		}
	}
	return seed, nil
}

// indexDependents precomputes parent→dependent-fields for cascading options.
func (s *Session) indexDependents() {
	deps := make(map[string][]string)
	for id, cfg := range s.ix.Fields {
		if cfg.Remote != nil && cfg.Remote.DependsOn != "" {
			parent := cfg.Remote.DependsOn
			deps[parent] = append(deps[parent], id)
		}
	}
	s.dependents = deps
}

// reloadDependents refreshes the option lists of every field cascading from
// the edited parent. An unset parent clears the children immediately; a set
// parent fetches in the background, one goroutine per child, each isolated.
// Every reload bumps the child's generation, and a fetch result only lands
// while its generation is still current, so a slow fetch for a superseded
// parent value can never overwrite a newer clear or a newer result.
func (s *Session) reloadDependents(parentID string, parentValue any) {
	children := s.dependents[parentID]
	if len(children) == 0 {
		return
	}
	for _, childID := range children {
		cfg := s.ix.Fields[childID]
		s.optMu.Lock()
		s.optGen[childID]++
		gen := s.optGen[childID]
		if formstate.Unset(parentValue) {
			s.fieldOptions[childID] = []metadata.Option{}
			s.optMu.Unlock()
			continue
		}
		s.optMu.Unlock()
		go s.reloadDependent(s.ctx, cfg, parentValue, gen)
	}
}

func (s *Session) reloadDependent(ctx context.Context, cfg *metadata.FieldConfig, parentValue any, gen uint64) {
	opts, err := s.loader.LoadDependent(ctx, cfg, parentValue)
	if err != nil {
		opts = []metadata.Option{}
	}
	if s.disposed() {
		return
	}
	s.optMu.Lock()
	if s.optGen[cfg.ID] == gen {
		s.fieldOptions[cfg.ID] = opts
	}
	s.optMu.Unlock()
}

// revalidate runs when a field's debounce timer fires: the edited field plus
// every field whose visibility transitively depends on it, from the graph
// built at parse time.
func (s *Session) revalidate(fieldID string) {
	if s.disposed() {
		return
	}
	ids := append([]string{fieldID}, s.graph.Dependents(fieldID)...)
	result := s.validator.ValidateFields(s.ix, ids, s.state.Snapshot())
	if !result.Valid {
		s.emitValidationFailed(result.Errors)
	}
}

func (s *Session) broadcast() {
	s.pendingMu.Lock()
	pending := s.pendingChange
	s.pendingChange = nil
	s.pendingMu.Unlock()
	if len(pending) == 0 || s.disposed() {
		return
	}
	for _, listener := range s.listeners {
		listener.FormDataChanged(pending)
	}
}

func (s *Session) emitStepCompleted(index int) {
	for _, listener := range s.listeners {
		listener.StepCompleted(index)
	}
}

func (s *Session) emitStepNavigation(from, to int) {
	for _, listener := range s.listeners {
		listener.StepNavigation(from, to)
	}
}

func (s *Session) emitValidationFailed(errs map[string]string) {
	for _, listener := range s.listeners {
		listener.ValidationFailed(errs)
	}
}
