package visibility

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultDelimiter splits a string-valued ShowWhen into an OR-set.
const DefaultDelimiter = ","

// Predicate is the conditional-visibility rule attached to a field or group.
// It compares the watched field's current value against ShowWhen, which may be
// a scalar, a slice, or a delimiter-separated string interpreted as an OR-set.
// A nil ShowOnMatch means true: show when the value matches.
type Predicate struct {
	WatchField  string
	ShowWhen    any
	ShowOnMatch *bool
	Delimiter   string
}

// Visible evaluates the predicate against a state snapshot. It is pure: no
// reads outside the given map, no writes anywhere. A nil predicate or an
// empty WatchField always yields true.
func (p *Predicate) Visible(state map[string]any) bool {
	if p == nil || strings.TrimSpace(p.WatchField) == "" {
		return true
	}
	value := state[p.WatchField]
	match := p.matches(value)
	if p.ShowOnMatch != nil && !*p.ShowOnMatch {
		return !match
	}
	return match
}

func (p *Predicate) matches(value any) bool {
	for _, want := range p.orSet() {
		if looseEqual(value, want) {
			return true
		}
	}
	return false
}

// orSet expands ShowWhen into the set of accepted values.
func (p *Predicate) orSet() []any {
	switch when := p.ShowWhen.(type) {
	case nil:
		return nil
	case []any:
		return when
	case []string:
		out := make([]any, 0, len(when))
		for _, v := range when {
			out = append(out, v)
		}
		return out
	case string:
		delim := p.Delimiter
		if delim == "" {
			delim = DefaultDelimiter
		}
		if !strings.Contains(when, delim) {
			return []any{when}
		}
		parts := strings.Split(when, delim)
		out := make([]any, 0, len(parts))
		for _, part := range parts {
			out = append(out, strings.TrimSpace(part))
		}
		return out
	default:
		return []any{when}
	}
}

// AnyVisible combines several predicates as a logical OR. Groups may carry
// more than one predicate; with none configured the group is visible.
func AnyVisible(preds []*Predicate, state map[string]any) bool {
	if len(preds) == 0 {
		return true
	}
	for _, p := range preds {
		if p.Visible(state) {
			return true
		}
	}
	return false
}

// looseEqual compares a state value against a ShowWhen member. Numeric values
// compare numerically regardless of representation ("2" matches 2), booleans
// match their string forms, anything else falls back to trimmed string
// comparison.
func looseEqual(got, want any) bool {
	if got == nil && want == nil {
		return true
	}
	if gotNum, ok := coerceNumber(got); ok {
		if wantNum, ok := coerceNumber(want); ok {
			return gotNum == wantNum
		}
	}
	if gotBool, ok := strictBool(got); ok {
		if wantBool, ok := strictBool(want); ok {
			return gotBool == wantBool
		}
	}
	return strings.TrimSpace(coerceString(got)) == strings.TrimSpace(coerceString(want))
}

func coerceNumber(value any) (float64, bool) {
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
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func strictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return parsed, err == nil
	default:
		return false, false
	}
}

// Stringify renders a field value the way predicates compare it: numbers
// without trailing zeros, booleans as true/false, nil as the empty string.
func Stringify(value any) string {
	return coerceString(value)
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}
