package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// ErrNotAGroup is returned when a document expected to hold a rule tree root
// is not shaped like a group.
var ErrNotAGroup = errors.New("rules: not a condition group")

// ErrInvalidValue is returned when a condition value is not an integer.
var ErrInvalidValue = errors.New("rules: condition value must be an integer")

// groupJSON is the wire shape of a Group.
type groupJSON struct {
	Operator   Logic  `json:"operator"`
	Conditions []Node `json:"conditions"`
	SelectAll  bool   `json:"selectAll,omitempty"`
}

// groupYAML mirrors groupJSON for yaml.v3.
type groupYAML struct {
	Operator   Logic  `yaml:"operator"`
	Conditions []Node `yaml:"conditions"`
	SelectAll  bool   `yaml:"selectAll,omitempty"`
}

// probe captures every key either variant may carry so the kind can be
// decided from the document shape.
type probe struct {
	Field      Field           `json:"field"`
	Operator   string          `json:"operator"`
	Value      json.RawMessage `json:"value"`
	Conditions json.RawMessage `json:"conditions"`
	SelectAll  bool            `json:"selectAll"`
}

// MarshalJSON encodes g in the untagged wire shape. A nil Conditions slice is
// written as [] so empty groups stay groups on the way back in.
func (g Group) MarshalJSON() ([]byte, error) {
	conds := g.Conditions
	if conds == nil {
		conds = []Node{}
	}
	return json.Marshal(groupJSON{Operator: g.Operator, Conditions: conds, SelectAll: g.SelectAll})
}

// UnmarshalJSON decodes a Group. The document must carry a conditions array;
// null leaves g unchanged.
func (g *Group) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return nil
	}
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if !isJSONArray(p.Conditions) {
		return ErrNotAGroup
	}
	return decodeGroup(p, g)
}

// MarshalJSON encodes the variant held by n.
func (n Node) MarshalJSON() ([]byte, error) {
	if n.Kind == KindGroup {
		return n.Group.MarshalJSON()
	}
	return json.Marshal(n.Condition)
}

// UnmarshalJSON decides the variant structurally: a node is a group iff it has
// a conditions array and an AND/OR operator; anything else is a Condition.
func (n *Node) UnmarshalJSON(data []byte) error {
	if isJSONNull(data) {
		return nil
	}
	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	if isJSONArray(p.Conditions) && Logic(p.Operator).IsKnown() {
		var g Group
		if err := decodeGroup(p, &g); err != nil {
			return err
		}
		*n = Nested(g)
		return nil
	}

	value, err := decodeValue(p.Value)
	if err != nil {
		return err
	}
	*n = Leaf(Condition{Field: p.Field, Operator: Operator(p.Operator), Value: value})
	return nil
}

func decodeGroup(p probe, g *Group) error {
	var children []Node
	if err := json.Unmarshal(p.Conditions, &children); err != nil {
		return err
	}
	if children == nil {
		children = []Node{}
	}
	*g = Group{Operator: Logic(p.Operator), Conditions: children, SelectAll: p.SelectAll}
	return nil
}

func decodeValue(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidValue, raw)
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidValue, raw)
	}
	return int(f), nil
}

func isJSONNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isJSONArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// MarshalYAML encodes g with the same keys as the JSON form.
func (g Group) MarshalYAML() (interface{}, error) {
	conds := g.Conditions
	if conds == nil {
		conds = []Node{}
	}
	return groupYAML{Operator: g.Operator, Conditions: conds, SelectAll: g.SelectAll}, nil
}

// UnmarshalYAML decodes a Group by routing the document through the JSON
// decoder so both file formats share one discrimination rule.
func (g *Group) UnmarshalYAML(value *yaml.Node) error {
	data, err := yamlToJSON(value)
	if err != nil {
		return err
	}
	return g.UnmarshalJSON(data)
}

// MarshalYAML encodes the variant held by n.
func (n Node) MarshalYAML() (interface{}, error) {
	if n.Kind == KindGroup {
		return n.Group.MarshalYAML()
	}
	return n.Condition, nil
}

// UnmarshalYAML decodes a Node, see UnmarshalJSON.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	data, err := yamlToJSON(value)
	if err != nil {
		return err
	}
	return n.UnmarshalJSON(data)
}

func yamlToJSON(value *yaml.Node) ([]byte, error) {
	var v any
	if err := value.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// ParseJSON decodes a rule tree root from JSON.
func ParseJSON(data []byte) (Group, error) {
	if isJSONNull(data) {
		return Group{}, ErrNotAGroup
	}
	var g Group
	if err := json.Unmarshal(data, &g); err != nil {
		return Group{}, err
	}
	return g, nil
}

// ParseYAML decodes a rule tree root from YAML.
func ParseYAML(data []byte) (Group, error) {
	var g Group
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Group{}, err
	}
	return g, nil
}
