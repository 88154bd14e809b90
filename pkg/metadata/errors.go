package metadata

import "fmt"

// Error reason codes for malformed or unresolved descriptors.
const (
	ReasonMissingID      = "missing-id"
	ReasonUnknownSection = "unknown-section"
	ReasonUnknownGroup   = "unknown-group"
)

// Error describes a metadata defect found while parsing. Metadata errors are
// never fatal: the affected item is withheld from rendering until a later
// merge resolves it, and everything else keeps working.
type Error struct {
	ItemID string
	Reason string
	Ref    string
}

func (e *Error) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("metadata: item %q: %s (%q)", e.ItemID, e.Reason, e.Ref)
	}
	return fmt.Sprintf("metadata: item %q: %s", e.ItemID, e.Reason)
}
