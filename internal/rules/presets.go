package rules

// DefaultCondition is appended by an "add" edit without payload.
func DefaultCondition() Condition {
	return Condition{Field: FieldLastPurchaseDay, Operator: OpLessThan, Value: 90}
}

// DefaultGroupCondition seeds a group created by "addGroup".
func DefaultGroupCondition() Condition {
	return Condition{Field: FieldLastPurchaseDay, Operator: OpLessThan, Value: 30}
}

// DefaultGroup is appended by an "addGroup" edit without payload.
func DefaultGroup() Group {
	return NewGroup(And, Leaf(DefaultGroupCondition()))
}

// DefaultTree is the tree an editor opens with when nothing was saved.
func DefaultTree() Group {
	return NewGroup(And, Leaf(DefaultCondition()))
}

// SelectAll returns the canned tree that matches every customer: total spend
// is never negative, so a single greaterThanOrEqual 0 condition is always
// true. The SelectAll marker tells consumers to skip the tree entirely.
func SelectAll() Group {
	g := NewGroup(Or, Leaf(Condition{Field: FieldTotalSpend, Operator: OpGreaterThanOrEqual, Value: 0}))
	g.SelectAll = true
	return g
}
