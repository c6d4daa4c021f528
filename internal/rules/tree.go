package rules

import (
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Equal reports whether a and b describe the same tree. A nil and an empty
// conditions slice are equal.
func Equal(a, b Group) bool {
	if a.Operator != b.Operator || a.SelectAll != b.SelectAll || len(a.Conditions) != len(b.Conditions) {
		return false
	}
	for i := range a.Conditions {
		if !nodeEqual(a.Conditions[i], b.Conditions[i]) {
			return false
		}
	}
	return true
}

func nodeEqual(a, b Node) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.IsGroup() {
		return Equal(a.Group, b.Group)
	}
	return a.Condition == b.Condition
}

// Clone returns a deep copy of g that shares no slices with it.
func Clone(g Group) Group {
	out := g
	out.Conditions = make([]Node, len(g.Conditions))
	for i, child := range g.Conditions {
		if child.IsGroup() {
			out.Conditions[i] = Nested(Clone(child.Group))
		} else {
			out.Conditions[i] = child
		}
	}
	return out
}

// Count returns the number of conditions (leaves) in the tree.
func Count(g Group) int {
	n := 0
	for _, child := range g.Conditions {
		if child.IsGroup() {
			n += Count(child.Group)
		} else {
			n++
		}
	}
	return n
}

// Depth returns the nesting depth; a root with only leaves has depth 1.
func Depth(g Group) int {
	deepest := 0
	for _, child := range g.Conditions {
		if child.IsGroup() {
			if d := Depth(child.Group); d > deepest {
				deepest = d
			}
		}
	}
	return deepest + 1
}

// Fingerprint returns a stable hex hash of the tree's canonical JSON form.
// Equal trees always share a fingerprint.
func Fingerprint(g Group) string {
	data, err := json.Marshal(g)
	if err != nil {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}
