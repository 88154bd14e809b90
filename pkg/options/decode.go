package options

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/metadata"
	"github.com/goliatone/go-formwizard/pkg/visibility"
)

const (
	defaultValueField = "value"
	defaultLabelField = "label"
)

// envelope matches the `{data:[...]}` response shape; a bare array is also
// accepted.
type envelope struct {
	Data []map[string]any `json:"data"`
}

// decode reduces a remote payload to label/value options. The value and label
// source fields are configurable per remote descriptor; a label template like
// "{name} ({code})" interpolates several source fields into one label. Labels
// come from an external service, so they pass through the strict sanitizer
// before anything downstream renders them.
func (l *Loader) decode(raw []byte, remote *metadata.RemoteOptions) ([]metadata.Option, error) {
	items, err := decodeItems(raw)
	if err != nil {
		return nil, err
	}

	valueField := defaultValueField
	labelField := defaultLabelField
	if remote != nil {
		if remote.ValueField != "" {
			valueField = remote.ValueField
		}
		if remote.LabelField != "" {
			labelField = remote.LabelField
		}
	}

	out := make([]metadata.Option, 0, len(items))
	for _, item := range items {
		value, ok := item[valueField]
		if !ok {
			value = item["id"]
		}
		var label string
		if remote != nil && remote.LabelTemplate != "" {
			label = interpolate(remote.LabelTemplate, item)
		} else if raw, ok := item[labelField]; ok {
			label = visibility.Stringify(raw)
		} else {
			label = visibility.Stringify(value)
		}
		out = append(out, metadata.Option{
			Label: l.sanitize(label),
			Value: value,
		})
	}
	return out, nil
}

func decodeItems(raw []byte) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, fmt.Errorf("options: empty response")
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []map[string]any
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("options: decode response: %w", err)
		}
		return items, nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("options: decode response: %w", err)
	}
	return env.Data, nil
}

// interpolate replaces {field} tokens with the item's values. Unknown tokens
// resolve to the empty string.
func interpolate(template string, item map[string]any) string {
	var b strings.Builder
	rest := template
	for {
		start := strings.Index(rest, "{")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:start])
		token := rest[start+1 : start+end]
		if v, ok := item[token]; ok {
			b.WriteString(visibility.Stringify(v))
		}
		rest = rest[start+end+1:]
	}
	return strings.TrimSpace(b.String())
}

func (l *Loader) sanitize(label string) string {
	if l.policy == nil {
		return strings.TrimSpace(label)
	}
	return strings.TrimSpace(l.policy.Sanitize(label))
}
