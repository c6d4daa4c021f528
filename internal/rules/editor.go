package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Action names an edit applied at a path.
type Action string

const (
	// ActionOperator sets the root or a nested group's AND/OR, or a
	// condition's comparison operator, depending on what the path addresses.
	ActionOperator Action = "operator"
	ActionAdd      Action = "add"
	ActionAddGroup Action = "addGroup"
	ActionRemove   Action = "remove"
	ActionField    Action = "field"
	ActionValue    Action = "value"
)

// ErrInvalidAction is returned when an action does not apply to the node the
// path addresses or the payload has the wrong type.
var ErrInvalidAction = errors.New("rules: invalid action")

// Apply returns a new tree with action applied at path. The input is never
// modified: every group on the root-to-target branch is rebuilt with a fresh
// conditions slice while all other subtrees are carried over as they were.
//
// Any successful edit clears the SelectAll marker. Removing the root is a
// no-op. Empty groups are kept; the editor never collapses structure the
// caller did not remove.
func Apply(tree Group, path Path, action Action, payload any) (Group, error) {
	indices, array, err := path.Indices()
	if err != nil {
		return Group{}, err
	}

	if path.IsRoot() {
		switch action {
		case ActionOperator:
			logic, err := toLogic(payload)
			if err != nil {
				return Group{}, err
			}
			out := tree
			out.Operator = logic
			out.SelectAll = false
			return out, nil
		case ActionRemove:
			out := tree
			out.SelectAll = false
			return out, nil
		default:
			return Group{}, fmt.Errorf("%w: %q on the root group (use its conditions path)", ErrInvalidAction, action)
		}
	}

	out, err := edit(tree, path, indices, array, action, payload)
	if err != nil {
		return Group{}, err
	}
	out.SelectAll = false
	return out, nil
}

func edit(g Group, path Path, indices []int, array bool, action Action, payload any) (Group, error) {
	if len(indices) == 0 {
		// only array paths reach here: the target is g.Conditions itself
		node, err := newChild(action, payload)
		if err != nil {
			return Group{}, err
		}
		conds := make([]Node, len(g.Conditions), len(g.Conditions)+1)
		copy(conds, g.Conditions)
		g.Conditions = append(conds, node)
		return g, nil
	}

	i := indices[0]
	if i >= len(g.Conditions) {
		return Group{}, fmt.Errorf("%w: %s: index %d out of range (len %d)", ErrPathNotFound, path, i, len(g.Conditions))
	}

	if len(indices) == 1 && !array {
		if action == ActionRemove {
			conds := make([]Node, 0, len(g.Conditions)-1)
			conds = append(conds, g.Conditions[:i]...)
			g.Conditions = append(conds, g.Conditions[i+1:]...)
			return g, nil
		}
		node, err := editNode(g.Conditions[i], action, payload)
		if err != nil {
			return Group{}, err
		}
		g.Conditions = replaceAt(g.Conditions, i, node)
		return g, nil
	}

	child := g.Conditions[i]
	if !child.IsGroup() {
		return Group{}, fmt.Errorf("%w: %s: index %d is a condition, not a group", ErrPathNotFound, path, i)
	}
	sub, err := edit(child.Group, path, indices[1:], array, action, payload)
	if err != nil {
		return Group{}, err
	}
	g.Conditions = replaceAt(g.Conditions, i, Nested(sub))
	return g, nil
}

func replaceAt(conds []Node, i int, n Node) []Node {
	out := make([]Node, len(conds))
	copy(out, conds)
	out[i] = n
	return out
}

func newChild(action Action, payload any) (Node, error) {
	switch action {
	case ActionAdd:
		if payload == nil {
			return Leaf(DefaultCondition()), nil
		}
		n, err := toNode(payload)
		if err != nil {
			return Node{}, err
		}
		if n.IsGroup() {
			return Node{}, fmt.Errorf("%w: add expects a condition payload, use addGroup", ErrInvalidAction)
		}
		return n, nil
	case ActionAddGroup:
		if payload == nil {
			return Nested(DefaultGroup()), nil
		}
		n, err := toNode(payload)
		if err != nil {
			return Node{}, err
		}
		if !n.IsGroup() {
			return Node{}, fmt.Errorf("%w: addGroup expects a group payload", ErrInvalidAction)
		}
		return n, nil
	default:
		return Node{}, fmt.Errorf("%w: %q on a conditions array (only add and addGroup)", ErrInvalidAction, action)
	}
}

func editNode(n Node, action Action, payload any) (Node, error) {
	if n.IsGroup() {
		if action != ActionOperator {
			return Node{}, fmt.Errorf("%w: %q on a group", ErrInvalidAction, action)
		}
		logic, err := toLogic(payload)
		if err != nil {
			return Node{}, err
		}
		g := n.Group
		g.Operator = logic
		return Nested(g), nil
	}

	c := n.Condition
	switch action {
	case ActionField:
		f, err := toString(payload)
		if err != nil {
			return Node{}, err
		}
		c.Field = Field(f)
	case ActionOperator:
		op, err := toString(payload)
		if err != nil {
			return Node{}, err
		}
		c.Operator = Operator(op)
	case ActionValue:
		v, err := toValue(payload)
		if err != nil {
			return Node{}, err
		}
		c.Value = v
	default:
		return Node{}, fmt.Errorf("%w: %q on a condition", ErrInvalidAction, action)
	}
	return Leaf(c), nil
}

func toLogic(payload any) (Logic, error) {
	s, err := toString(payload)
	if err != nil {
		return "", err
	}
	logic := Logic(strings.ToUpper(strings.TrimSpace(s)))
	if !logic.IsKnown() {
		return "", fmt.Errorf("%w: group operator must be AND or OR, got %q", ErrInvalidAction, s)
	}
	return logic, nil
}

func toString(payload any) (string, error) {
	switch v := payload.(type) {
	case string:
		return v, nil
	case Field:
		return string(v), nil
	case Operator:
		return string(v), nil
	case Logic:
		return string(v), nil
	default:
		return "", fmt.Errorf("%w: expected a string payload, got %T", ErrInvalidAction, payload)
	}
}

// toValue coerces a value payload. Strings follow the builder's text box:
// the leading integer is used and anything unparsable becomes 0.
func toValue(payload any) (int, error) {
	switch v := payload.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: value %v is not an integer", ErrInvalidAction, v)
		}
		return int(v), nil
	case json.Number:
		return leadingInt(v.String()), nil
	case string:
		return leadingInt(v), nil
	default:
		return 0, fmt.Errorf("%w: expected a numeric value payload, got %T", ErrInvalidAction, payload)
	}
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func toNode(payload any) (Node, error) {
	switch v := payload.(type) {
	case Node:
		return v, nil
	case Condition:
		return Leaf(v), nil
	case *Condition:
		return Leaf(*v), nil
	case Group:
		return Nested(v), nil
	case *Group:
		return Nested(*v), nil
	case json.RawMessage:
		return decodeNode(v)
	case []byte:
		return decodeNode(v)
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return Node{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		return decodeNode(data)
	default:
		return Node{}, fmt.Errorf("%w: unsupported node payload %T", ErrInvalidAction, payload)
	}
}

func decodeNode(data []byte) (Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return Node{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	return n, nil
}

// SetRootOperator sets the root group's AND/OR. Nested groups keep theirs.
func SetRootOperator(tree Group, logic Logic) (Group, error) {
	return Apply(tree, Root(), ActionOperator, logic)
}

// SetLogic sets the AND/OR of the group at path (the root when path is empty).
func SetLogic(tree Group, path Path, logic Logic) (Group, error) {
	return Apply(tree, path, ActionOperator, logic)
}

// AddCondition appends c to the group addressed by groupPath.
func AddCondition(tree Group, groupPath Path, c Condition) (Group, error) {
	return Apply(tree, groupPath.Conditions(), ActionAdd, c)
}

// AddGroup appends g to the group addressed by groupPath.
func AddGroup(tree Group, groupPath Path, g Group) (Group, error) {
	return Apply(tree, groupPath.Conditions(), ActionAddGroup, g)
}

// Remove deletes the node at path from its parent. Later siblings shift down.
func Remove(tree Group, path Path) (Group, error) {
	return Apply(tree, path, ActionRemove, nil)
}

// SetField replaces the field of the condition at path.
func SetField(tree Group, path Path, f Field) (Group, error) {
	return Apply(tree, path, ActionField, f)
}

// SetOperator replaces the comparison operator of the condition at path.
func SetOperator(tree Group, path Path, op Operator) (Group, error) {
	return Apply(tree, path, ActionOperator, op)
}

// SetValue replaces the value of the condition at path.
func SetValue(tree Group, path Path, v int) (Group, error) {
	return Apply(tree, path, ActionValue, v)
}
