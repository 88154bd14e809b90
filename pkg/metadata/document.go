package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// document is the on-disk envelope. A document may be a bare item array or an
// object wrapping the array under "items".
type document struct {
	Items []Item `json:"items" yaml:"items"`
}

// Decode parses a metadata document, accepting JSON or YAML payloads. JSON is
// tried first when the payload looks like JSON; anything else goes through
// the YAML decoder (which also accepts JSON, but with laxer number handling).
func Decode(raw []byte) ([]Item, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("metadata: document is empty")
	}
	if trimmed[0] == '[' || trimmed[0] == '{' {
		return DecodeJSON(trimmed)
	}
	return DecodeYAML(trimmed)
}

// DecodeJSON parses a JSON metadata document.
func DecodeJSON(raw []byte) ([]Item, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("metadata: document is empty")
	}
	if trimmed[0] == '[' {
		var items []Item
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("metadata: decode json: %w", err)
		}
		return items, nil
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("metadata: decode json: %w", err)
	}
	return doc.Items, nil
}

// DecodeYAML parses a YAML metadata document.
func DecodeYAML(raw []byte) ([]Item, error) {
	var items []Item
	if err := yaml.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("metadata: decode yaml: %w", err)
	}
	return doc.Items, nil
}
