// Package pin defines the lifecycle contract shared by all pin kinds and the
// property-listing interface used to present changes to the user.
package pin

import (
	"context"
	"fmt"
)

// AbsentValue is rendered for optional properties that have no value.
// Optional fields are always listed so that diffs line up; credentials are
// the one exception and are never listed at all.
const AbsentValue = "N/A"

// Property is a single human-readable (label, value) pair.
type Property struct {
	Label string
	Value string
}

// Differ is implemented by every resolvable entity (repositories, revisions,
// hash bundles, pin configurations) that can present itself as an ordered
// list of properties for diff display.
type Differ interface {
	Properties() []Property
}

// PropertyList is a plain property slice satisfying Differ, for callers that
// already hold the listed properties.
type PropertyList []Property

// Properties implements Differ.
func (l PropertyList) Properties() []Property {
	return l
}

// Updatable is the two-phase lifecycle contract every pin kind implements.
//
// Update resolves the next version for the declared tracking intent. The old
// version, when present, is used to enforce forward-only progression. Fetch
// materializes the content hash for a resolved version. Neither operation
// mutates the pin; persistence of the results is the caller's concern.
type Updatable[V any, H any] interface {
	Update(ctx context.Context, old *V) (V, error)
	Fetch(ctx context.Context, version V) (H, error)
}

// Changes renders the property-level differences between an old and a new
// entity as "label: old -> new" lines. Properties that did not change are
// skipped; properties without an old counterpart are rendered as plain
// "label: new" lines.
func Changes(old Differ, updated Differ) []string {
	var oldProps []Property
	if old != nil {
		oldProps = old.Properties()
	}

	previous := make(map[string]string, len(oldProps))
	for _, p := range oldProps {
		previous[p.Label] = p.Value
	}

	var lines []string
	for _, p := range updated.Properties() {
		before, ok := previous[p.Label]
		switch {
		case !ok:
			lines = append(lines, fmt.Sprintf("%s: %s", p.Label, p.Value))
		case before != p.Value:
			lines = append(lines, fmt.Sprintf("%s: %s -> %s", p.Label, before, p.Value))
		}
	}

	return lines
}
