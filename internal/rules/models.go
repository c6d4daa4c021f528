// Package rules models customer segmentation rule trees: comparison
// conditions combined by nested AND/OR groups, addressed by positional paths
// and edited through pure functions that rebuild only the touched branch.
package rules

// Field identifies a customer attribute a condition compares against.
type Field string

// Registered customer attributes.
const (
	FieldLastPurchaseDay Field = "lastpurchase_day"
	FieldVisitCount      Field = "visit_count"
	FieldTotalSpend      Field = "totalspend"
	FieldDaysInactive    Field = "days_inactive"
)

// Operator represents a comparison operator used in a Condition.
type Operator string

// Supported comparison operators (string values match the wire format).
const (
	OpLessThan           Operator = "lessThan"
	OpLessThanOrEqual    Operator = "lessThanOrEqual"
	OpEqual              Operator = "equal"
	OpGreaterThan        Operator = "greaterThan"
	OpGreaterThanOrEqual Operator = "greaterThanOrEqual"
)

// Logic is the boolean combinator of a Group. It applies to all direct children.
type Logic string

const (
	And Logic = "AND"
	Or  Logic = "OR"
)

// Option pairs a wire identifier with its display label.
type Option struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

var fieldOptions = []Option{
	{ID: string(FieldLastPurchaseDay), Label: "Days Since Last Purchase"},
	{ID: string(FieldVisitCount), Label: "Visit Count"},
	{ID: string(FieldTotalSpend), Label: "Total Spend"},
	{ID: string(FieldDaysInactive), Label: "Days Inactive"},
}

var operatorOptions = []Option{
	{ID: string(OpLessThan), Label: "Less Than"},
	{ID: string(OpLessThanOrEqual), Label: "Less Than or Equal"},
	{ID: string(OpEqual), Label: "Equal To"},
	{ID: string(OpGreaterThan), Label: "Greater Than"},
	{ID: string(OpGreaterThanOrEqual), Label: "Greater Than or Equal"},
}

var logicOptions = []Option{
	{ID: string(And), Label: "AND"},
	{ID: string(Or), Label: "OR"},
}

// Fields returns the registered customer attributes in display order.
func Fields() []Option { return append([]Option(nil), fieldOptions...) }

// Operators returns the comparison operators in display order.
func Operators() []Option { return append([]Option(nil), operatorOptions...) }

// Logics returns the group combinators.
func Logics() []Option { return append([]Option(nil), logicOptions...) }

// IsKnown reports whether f is a registered attribute.
func (f Field) IsKnown() bool {
	return hasOption(fieldOptions, string(f))
}

// IsKnown reports whether op is a supported comparison operator.
func (op Operator) IsKnown() bool {
	return hasOption(operatorOptions, string(op))
}

// IsKnown reports whether l is AND or OR.
func (l Logic) IsKnown() bool {
	return l == And || l == Or
}

// Label returns the display label for f, or the raw identifier when unknown.
func (f Field) Label() string {
	return optionLabel(fieldOptions, string(f))
}

// Label returns the display label for op, or the raw identifier when unknown.
func (op Operator) Label() string {
	return optionLabel(operatorOptions, string(op))
}

func hasOption(opts []Option, id string) bool {
	for _, o := range opts {
		if o.ID == id {
			return true
		}
	}
	return false
}

func optionLabel(opts []Option, id string) string {
	for _, o := range opts {
		if o.ID == id {
			return o.Label
		}
	}
	return id
}

// Condition is a leaf predicate: Field Operator Value.
type Condition struct {
	Field    Field    `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    int      `json:"value" yaml:"value"`
}

// Group combines its children with Operator. The root of every tree is a Group.
// SelectAll marks the canned "match every record" tree and is only meaningful
// on the root.
type Group struct {
	Operator   Logic
	Conditions []Node
	SelectAll  bool
}

// NodeKind tags which variant a Node holds.
type NodeKind uint8

const (
	KindCondition NodeKind = iota
	KindGroup
)

func (k NodeKind) String() string {
	switch k {
	case KindCondition:
		return "condition"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Node is one child of a Group: either a Condition or a nested Group.
// Kind is fixed at construction; only the matching field is meaningful.
type Node struct {
	Kind      NodeKind
	Condition Condition
	Group     Group
}

// Leaf wraps a Condition as a Node.
func Leaf(c Condition) Node {
	return Node{Kind: KindCondition, Condition: c}
}

// Nested wraps a Group as a Node.
func Nested(g Group) Node {
	return Node{Kind: KindGroup, Group: g}
}

// IsGroup reports whether n holds a nested Group.
func (n Node) IsGroup() bool { return n.Kind == KindGroup }

// NewGroup builds a Group from the given children.
func NewGroup(op Logic, children ...Node) Group {
	conds := make([]Node, len(children))
	copy(conds, children)
	return Group{Operator: op, Conditions: conds}
}
