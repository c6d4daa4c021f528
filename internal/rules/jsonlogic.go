package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"
)

// ErrInvalidExpression is returned when a compiled document is not valid JSON Logic.
var ErrInvalidExpression = errors.New("invalid expression: not valid JSON Logic")

// ErrEmptyExpression is returned when an expression is empty or whitespace.
var ErrEmptyExpression = errors.New("invalid expression: empty or whitespace")

var jsonLogicOps = map[Operator]string{
	OpLessThan:           "<",
	OpLessThanOrEqual:    "<=",
	OpEqual:              "==",
	OpGreaterThan:        ">",
	OpGreaterThanOrEqual: ">=",
}

// ToJSONLogic compiles the tree into a JSON Logic document (jsonlogic.com)
// so saved segments can be handed to any JSON Logic evaluator. A select-all
// tree compiles to true; an empty group imposes no constraint and also
// compiles to true.
func ToJSONLogic(g Group) (any, error) {
	if g.SelectAll {
		return true, nil
	}
	return compileGroup(Root(), g)
}

func compileGroup(path Path, g Group) (any, error) {
	if len(g.Conditions) == 0 {
		return true, nil
	}
	var key string
	switch g.Operator {
	case And:
		key = "and"
	case Or:
		key = "or"
	default:
		return nil, fmt.Errorf("%w: %s: %q is not AND or OR", ErrUnknownLogic, path, g.Operator)
	}

	args := make([]any, 0, len(g.Conditions))
	for i, child := range g.Conditions {
		p := path.Child(i)
		if child.IsGroup() {
			sub, err := compileGroup(p, child.Group)
			if err != nil {
				return nil, err
			}
			args = append(args, sub)
			continue
		}
		op, ok := jsonLogicOps[child.Condition.Operator]
		if !ok {
			return nil, fmt.Errorf("%w: %s: operator %q is not supported", ErrUnknownOperator, p, child.Condition.Operator)
		}
		args = append(args, map[string]any{
			op: []any{map[string]any{"var": string(child.Condition.Field)}, child.Condition.Value},
		})
	}
	return map[string]any{key: args}, nil
}

// CompileJSONLogic returns the compiled document as a validated JSON string.
func CompileJSONLogic(g Group) (string, error) {
	doc, err := ToJSONLogic(g)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	expr := strings.TrimSpace(buf.String())
	if err := ValidateJSONLogic(expr); err != nil {
		return "", err
	}
	return expr, nil
}

// ValidateJSONLogic checks that expression is valid JSON Logic by applying it
// to an empty record.
func ValidateJSONLogic(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return ErrEmptyExpression
	}

	var rule any
	if err := json.Unmarshal([]byte(expression), &rule); err != nil {
		return ErrInvalidExpression
	}

	var out bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(expression), strings.NewReader("{}"), &out); err != nil {
		return ErrInvalidExpression
	}
	return nil
}
