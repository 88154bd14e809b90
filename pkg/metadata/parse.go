package metadata

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/visibility"
)

// Indices is the runtime model derived from a flat metadata document: the
// three entity maps plus the section→groups and group→fields orderings.
// Parsing is cumulative: merging a document that names an existing section
// augments it, it never replaces what is already there. Fields and groups
// whose parent has not arrived yet are retained and attached when a later
// (lazily loaded) document supplies the parent.
type Indices struct {
	Sections map[string]*FormSection
	Groups   map[string]*FormGroup
	Fields   map[string]*FieldConfig

	// SectionGroups orders group ids inside each section by declared order,
	// ties broken by declaration order. GroupFields keeps declaration order.
	SectionGroups map[string][]string
	GroupFields   map[string][]string

	pendingGroups []string
	pendingFields []string

	seq      int
	declared map[string]int
	errs     []*Error
}

// ParseItems builds fresh indices from a flat, arbitrarily ordered item list.
func ParseItems(items []Item) *Indices {
	ix := &Indices{
		Sections:      make(map[string]*FormSection),
		Groups:        make(map[string]*FormGroup),
		Fields:        make(map[string]*FieldConfig),
		SectionGroups: make(map[string][]string),
		GroupFields:   make(map[string][]string),
		declared:      make(map[string]int),
	}
	ix.Merge(items)
	return ix
}

// Merge folds another item batch into the indices. Late-arriving sections
// re-attach any groups and fields that were parked waiting for them.
func (ix *Indices) Merge(items []Item) {
	for _, item := range items {
		ix.seq++
		id := strings.TrimSpace(item.ID)
		if id == "" {
			ix.errs = append(ix.errs, &Error{Reason: ReasonMissingID, Ref: item.Type})
			continue
		}
		if _, ok := ix.declared[declKey(item.Type, id)]; !ok {
			ix.declared[declKey(item.Type, id)] = ix.seq
		}
		switch item.Type {
		case itemTypeSection:
			ix.mergeSection(item)
		case itemTypeGroup:
			ix.mergeGroup(item)
		default:
			ix.mergeField(item)
		}
	}
	ix.attachPending()
}

// Errors returns parse defects recorded so far plus one entry per still
// unresolved parent reference.
func (ix *Indices) Errors() []*Error {
	out := append([]*Error(nil), ix.errs...)
	for _, id := range ix.pendingGroups {
		group := ix.Groups[id]
		out = append(out, &Error{ItemID: id, Reason: ReasonUnknownSection, Ref: group.SectionID})
	}
	for _, id := range ix.pendingFields {
		field := ix.Fields[id]
		out = append(out, &Error{ItemID: id, Reason: ReasonUnknownGroup, Ref: field.GroupID})
	}
	return out
}

// SectionsInOrder returns sections sorted by declared order, declaration
// order breaking ties.
func (ix *Indices) SectionsInOrder() []*FormSection {
	out := make([]*FormSection, 0, len(ix.Sections))
	for _, sec := range ix.Sections {
		out = append(out, sec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return ix.declared[declKey(itemTypeSection, out[i].ID)] < ix.declared[declKey(itemTypeSection, out[j].ID)]
	})
	return out
}

// SectionFields returns the ids of every field attached to the section,
// walking groups in section order.
func (ix *Indices) SectionFields(sectionID string) []string {
	var out []string
	for _, groupID := range ix.SectionGroups[sectionID] {
		out = append(out, ix.GroupFields[groupID]...)
	}
	return out
}

// FieldVisible reports whether the field is currently shown: its own
// predicate must pass and, when the field sits inside a group with
// predicates, at least one group predicate must pass.
func (ix *Indices) FieldVisible(field *FieldConfig, state map[string]any) bool {
	if field == nil {
		return false
	}
	if !field.Predicate.Visible(state) {
		return false
	}
	if group, ok := ix.Groups[field.GroupID]; ok {
		return visibility.AnyVisible(group.Predicates, state)
	}
	return true
}

// BuildGraph derives the watchField→dependents graph used for incremental
// re-validation. Group predicates fan out to the group's fields so an edit to
// a watched field re-scores everything it can hide or reveal.
func (ix *Indices) BuildGraph() *visibility.Graph {
	graph := visibility.NewGraph()
	for id, field := range ix.Fields {
		if field.Predicate != nil {
			graph.Add(field.Predicate.WatchField, id)
		}
	}
	for groupID, group := range ix.Groups {
		for _, pred := range group.Predicates {
			if pred == nil {
				continue
			}
			for _, fieldID := range ix.GroupFields[groupID] {
				graph.Add(pred.WatchField, fieldID)
			}
		}
	}
	return graph
}

func (ix *Indices) mergeSection(item Item) {
	sec, ok := ix.Sections[item.ID]
	if !ok {
		sec = &FormSection{ID: item.ID}
		ix.Sections[item.ID] = sec
	}
	if item.Title != "" {
		sec.Title = item.Title
	}
	if item.Order != 0 {
		sec.Order = item.Order
	}
	if item.Icon != "" {
		sec.Icon = item.Icon
	}
	if item.RemoteURL != "" {
		sec.RemoteURL = item.RemoteURL
	}
	if _, ok := ix.SectionGroups[item.ID]; !ok {
		ix.SectionGroups[item.ID] = nil
	}
}

func (ix *Indices) mergeGroup(item Item) {
	group, existed := ix.Groups[item.ID]
	if !existed {
		group = &FormGroup{ID: item.ID}
		ix.Groups[item.ID] = group
	}
	if item.Title != "" {
		group.Title = item.Title
	}
	if item.SectionID != "" {
		group.SectionID = item.SectionID
	}
	if item.Order != 0 {
		group.Order = item.Order
	}
	if item.Size != 0 {
		group.Size = item.Size
	}
	if item.Collapsible {
		group.Collapsible = true
	}
	if pred := predicateFrom(item); pred != nil {
		group.Predicates = append(group.Predicates, pred)
	}
	if existed {
		return
	}
	if _, ok := ix.Sections[group.SectionID]; ok {
		ix.attachGroup(group.ID)
	} else {
		ix.pendingGroups = append(ix.pendingGroups, group.ID)
	}
}

func (ix *Indices) mergeField(item Item) {
	field, existed := ix.Fields[item.ID]
	if !existed {
		field = &FieldConfig{ID: item.ID}
		ix.Fields[item.ID] = field
	}
	field.RawType = item.Type
	field.Widget = ParseWidgetKind(item.Type)
	if item.Label != "" {
		field.Label = item.Label
	}
	if item.SectionID != "" {
		field.SectionID = item.SectionID
	}
	if item.GroupID != "" {
		field.GroupID = item.GroupID
	}
	if item.Size != 0 {
		field.Size = item.Size
	}
	field.Required = field.Required || item.Required
	if len(item.Options) > 0 {
		field.Options = append([]Option(nil), item.Options...)
	}
	if remote := remoteFrom(item); remote != nil {
		field.Remote = remote
	}
	if item.Default != nil {
		field.DefaultValue = item.Default
	}
	if pred := predicateFrom(item); pred != nil {
		field.Predicate = pred
	}
	if item.Calculated || item.Formula != "" {
		field.Computed = &Computed{Formula: item.Formula}
	}
	field.Disabled = field.Disabled || item.Disabled
	field.ReadOnly = field.ReadOnly || item.ReadOnly
	if item.Validator != "" {
		field.Validator = item.Validator
	}
	if len(item.Props) > 0 {
		field.Props = item.Props
	}
	if existed {
		return
	}
	if _, ok := ix.Groups[field.GroupID]; ok {
		ix.attachField(field.ID)
	} else {
		ix.pendingFields = append(ix.pendingFields, field.ID)
	}
}

// attachPending retries parked groups and fields after each merge.
func (ix *Indices) attachPending() {
	var stillPending []string
	for _, groupID := range ix.pendingGroups {
		group := ix.Groups[groupID]
		if _, ok := ix.Sections[group.SectionID]; ok {
			ix.attachGroup(groupID)
		} else {
			stillPending = append(stillPending, groupID)
		}
	}
	ix.pendingGroups = stillPending

	stillPending = nil
	for _, fieldID := range ix.pendingFields {
		field := ix.Fields[fieldID]
		if _, ok := ix.Groups[field.GroupID]; ok {
			ix.attachField(fieldID)
		} else {
			stillPending = append(stillPending, fieldID)
		}
	}
	ix.pendingFields = stillPending
}

func (ix *Indices) attachGroup(groupID string) {
	group := ix.Groups[groupID]
	ids := ix.SectionGroups[group.SectionID]
	for _, existing := range ids {
		if existing == groupID {
			return
		}
	}
	ids = append(ids, groupID)
	sort.SliceStable(ids, func(i, j int) bool {
		gi, gj := ix.Groups[ids[i]], ix.Groups[ids[j]]
		if gi.Order != gj.Order {
			return gi.Order < gj.Order
		}
		return ix.declared[declKey(itemTypeGroup, ids[i])] < ix.declared[declKey(itemTypeGroup, ids[j])]
	})
	ix.SectionGroups[group.SectionID] = ids
}

func (ix *Indices) attachField(fieldID string) {
	field := ix.Fields[fieldID]
	for _, existing := range ix.GroupFields[field.GroupID] {
		if existing == fieldID {
			return
		}
	}
	ix.GroupFields[field.GroupID] = append(ix.GroupFields[field.GroupID], fieldID)
}

func predicateFrom(item Item) *visibility.Predicate {
	if strings.TrimSpace(item.WatchField) == "" {
		return nil
	}
	return &visibility.Predicate{
		WatchField:  item.WatchField,
		ShowWhen:    item.ShowWhen,
		ShowOnMatch: item.ShowOnMatch,
	}
}

func remoteFrom(item Item) *RemoteOptions {
	if item.OptionsURL == "" && item.DepOptsURL == "" {
		return nil
	}
	remote := &RemoteOptions{
		URL:           item.OptionsURL,
		ValueField:    item.ValueField,
		LabelField:    item.LabelField,
		LabelTemplate: item.LabelTmpl,
	}
	if item.DepOptsURL != "" {
		remote.URL = item.DepOptsURL
		remote.DependsOn = item.DependsOn
	}
	return remote
}

func declKey(itemType, id string) string {
	switch itemType {
	case itemTypeSection, itemTypeGroup:
		return itemType + ":" + id
	default:
		return "field:" + id
	}
}
