package classify

import "strings"

// Label is the normalized classification outcome for one frame.
type Label string

// The labels a classification can produce. The service answers with
// one of plastic, organic, metal, or null; everything else collapses
// to LabelUnknown.
const (
	LabelPlastic Label = "plastic"
	LabelOrganic Label = "organic"
	LabelMetal   Label = "metal"

	// LabelNone means the model answered that the bin is empty.
	LabelNone Label = "none"

	// LabelUnknown covers unparseable answers and failed requests.
	LabelUnknown Label = "unknown"
)

// ParseLabel normalizes a raw model answer into a Label. Matching
// trims surrounding whitespace and lowercases, then requires an exact
// word. The wire word for an empty bin is "null"; both "null" and
// "none" map to LabelNone.
func ParseLabel(raw string) Label {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "plastic":
		return LabelPlastic
	case "organic":
		return LabelOrganic
	case "metal":
		return LabelMetal
	case "null", "none":
		return LabelNone
	default:
		return LabelUnknown
	}
}
