package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ConditionsKey is the only key segment a path may contain.
const ConditionsKey = "conditions"

// ErrPathNotFound is returned when a path does not address a node of the tree:
// an index is out of range, an intermediate node is a leaf, or the segments do
// not alternate ("conditions", index). Callers that recompute paths from the
// current tree on every interaction never see it; treat it as a bug.
var ErrPathNotFound = errors.New("rules: path not found")

// Segment is one step of a Path: either the "conditions" key or an index
// into the preceding conditions array.
type Segment struct {
	Key   bool
	Index int
}

// Key returns the "conditions" key segment.
func Key() Segment { return Segment{Key: true} }

// Index returns an index segment.
func Index(i int) Segment { return Segment{Index: i} }

func (s Segment) String() string {
	if s.Key {
		return ConditionsKey
	}
	return strconv.Itoa(s.Index)
}

// Path addresses a node, or a node's conditions array, from the root group.
// Node paths are ("conditions", i) pairs repeated once per nesting level; the
// empty path is the root itself. Array paths carry one trailing "conditions".
//
// Paths are positional. Removing a child shifts the paths of its later
// siblings, so a Path must be recomputed from the current tree after any
// structural edit of an ancestor.
type Path []Segment

// Root returns the empty path addressing the root group.
func Root() Path { return Path{} }

// NewPath builds a node path from child indices, outermost first.
func NewPath(indices ...int) Path {
	p := Root()
	for _, i := range indices {
		p = p.Child(i)
	}
	return p
}

// Child returns the path of the i-th child of the group at p.
func (p Path) Child(i int) Path {
	out := make(Path, len(p), len(p)+2)
	copy(out, p)
	return append(out, Key(), Index(i))
}

// Conditions returns the path of the conditions array of the group at p.
func (p Path) Conditions() Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Key())
}

// IsRoot reports whether p addresses the root group.
func (p Path) IsRoot() bool { return len(p) == 0 }

// IsArray reports whether p ends in a "conditions" key.
func (p Path) IsArray() bool { return len(p) > 0 && p[len(p)-1].Key }

// Indices decodes p into its child indices. array is true when p addresses a
// conditions array rather than a node. Malformed paths yield ErrPathNotFound.
func (p Path) Indices() (indices []int, array bool, err error) {
	for i := 0; i < len(p); i += 2 {
		if !p[i].Key {
			return nil, false, fmt.Errorf("%w: %s: expected %q at segment %d", ErrPathNotFound, p, ConditionsKey, i)
		}
		if i+1 == len(p) {
			return indices, true, nil
		}
		next := p[i+1]
		if next.Key || next.Index < 0 {
			return nil, false, fmt.Errorf("%w: %s: expected index at segment %d", ErrPathNotFound, p, i+1)
		}
		indices = append(indices, next.Index)
	}
	return indices, false, nil
}

// String renders p as dot-separated segments, "root" for the empty path.
func (p Path) String() string {
	if len(p) == 0 {
		return "root"
	}
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// ParsePath parses the String form. "", "root" and "." denote the root.
// The shorthand "0.2" (indices only) is accepted and expanded.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "root" || s == "." {
		return Root(), nil
	}
	parts := strings.Split(s, ".")

	shorthand := true
	for _, part := range parts {
		if part == ConditionsKey {
			shorthand = false
			break
		}
	}

	p := make(Path, 0, len(parts)*2)
	for _, part := range parts {
		if part == ConditionsKey {
			p = append(p, Key())
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("invalid path segment %q in %q", part, s)
		}
		if shorthand {
			p = append(p, Key())
		}
		p = append(p, Index(i))
	}
	if _, _, err := p.Indices(); err != nil {
		return nil, err
	}
	return p, nil
}

// MarshalJSON encodes p as the mixed array form, e.g. ["conditions",0].
func (p Path) MarshalJSON() ([]byte, error) {
	out := make([]any, len(p))
	for i, s := range p {
		if s.Key {
			out[i] = ConditionsKey
		} else {
			out[i] = s.Index
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the mixed array form.
func (p *Path) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Path, 0, len(raw))
	for _, r := range raw {
		switch v := r.(type) {
		case string:
			if v != ConditionsKey {
				return fmt.Errorf("invalid path key %q", v)
			}
			out = append(out, Key())
		case float64:
			if v < 0 || v != float64(int(v)) {
				return fmt.Errorf("invalid path index %v", v)
			}
			out = append(out, Index(int(v)))
		default:
			return fmt.Errorf("invalid path segment %v", r)
		}
	}
	*p = out
	return nil
}

// Resolve returns the node addressed by path. The root is returned wrapped
// as a group Node.
func Resolve(tree Group, path Path) (Node, error) {
	indices, array, err := path.Indices()
	if err != nil {
		return Node{}, err
	}
	if array {
		return Node{}, fmt.Errorf("%w: %s addresses a conditions array, not a node", ErrPathNotFound, path)
	}

	cur := Nested(tree)
	for depth, i := range indices {
		if !cur.IsGroup() {
			return Node{}, fmt.Errorf("%w: %s: segment %d is a condition", ErrPathNotFound, path, depth)
		}
		if i >= len(cur.Group.Conditions) {
			return Node{}, fmt.Errorf("%w: %s: index %d out of range (len %d)", ErrPathNotFound, path, i, len(cur.Group.Conditions))
		}
		cur = cur.Group.Conditions[i]
	}
	return cur, nil
}

// Walk visits every node below the root depth-first, pre-order, passing the
// path it is addressed by in the current tree.
func Walk(tree Group, fn func(path Path, n Node)) {
	walk(Root(), tree, fn)
}

func walk(path Path, g Group, fn func(Path, Node)) {
	for i, child := range g.Conditions {
		p := path.Child(i)
		fn(p, child)
		if child.IsGroup() {
			walk(p, child.Group, fn)
		}
	}
}
