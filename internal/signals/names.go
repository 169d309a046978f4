package signals

import "strings"

// Approach groups in display order
var groups = []string{"West", "East", "North", "South"}

var movements = []string{"Left", "Straight", "Right"}

// ids lists the twelve signals grouped by approach
var ids = func() []string {
	out := make([]string, 0, len(groups)*len(movements))
	for _, g := range groups {
		for _, m := range movements {
			out = append(out, g+"_"+m)
		}
	}
	return out
}()

// IDs returns the signal ids in display order.
func IDs() []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Groups returns the approach groups in display order.
func Groups() []string {
	out := make([]string, len(groups))
	copy(out, groups)
	return out
}

// IsKnown reports whether id names one of the twelve signals.
func IsKnown(id string) bool {
	for _, known := range ids {
		if known == id {
			return true
		}
	}
	return false
}

// GroupOf returns the approach of a signal id ("West" for "West_Left").
func GroupOf(id string) string {
	group, _, _ := strings.Cut(id, "_")
	return group
}

// DisplayName returns the human name of a signal, e.g. "West Straight" or "West to Left".
func DisplayName(id string) string {
	group, movement, ok := strings.Cut(id, "_")
	if !ok {
		return id
	}
	if movement == "Straight" {
		return group + " Straight"
	}
	return group + " to " + movement
}
