package rules

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Validate.
var (
	ErrUnknownField    = errors.New("unknown field")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrUnknownLogic    = errors.New("unknown group operator")
	ErrNegativeValue   = errors.New("negative value")
)

// Validate checks every node of the tree against the registered fields and
// operators. It is a pure function and reports the first violation, wrapped
// with the path of the offending node.
//
// The editor never calls Validate on its own: trees with unknown identifiers
// are legal to hold and edit. Callers that want a strict acceptance policy
// (the rule-generation service, `segmint rules validate`) opt in.
func Validate(g Group) error {
	if errs := ValidateAll(g); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ValidateAll is like Validate but collects every violation in walk order.
func ValidateAll(g Group) []error {
	var errs []error
	collect(Root(), g, &errs)
	return errs
}

func collect(path Path, g Group, errs *[]error) {
	if err := checkLogic(path, g.Operator); err != nil {
		*errs = append(*errs, err)
	}
	for i, child := range g.Conditions {
		p := path.Child(i)
		if child.IsGroup() {
			collect(p, child.Group, errs)
			continue
		}
		if err := validateCondition(p, child.Condition); err != nil {
			*errs = append(*errs, err)
		}
	}
}

func checkLogic(path Path, l Logic) error {
	if !l.IsKnown() {
		return fmt.Errorf("%w: %s: %q is not AND or OR", ErrUnknownLogic, path, l)
	}
	return nil
}

func validateCondition(path Path, c Condition) error {
	if !c.Field.IsKnown() {
		return fmt.Errorf("%w: %s: field %q is not registered", ErrUnknownField, path, c.Field)
	}
	if !c.Operator.IsKnown() {
		return fmt.Errorf("%w: %s: operator %q is not supported", ErrUnknownOperator, path, c.Operator)
	}
	if c.Value < 0 {
		return fmt.Errorf("%w: %s: value %d", ErrNegativeValue, path, c.Value)
	}
	return nil
}
