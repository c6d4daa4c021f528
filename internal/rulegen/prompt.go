package rulegen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/crmkit/segmint/internal/errs"
	"github.com/crmkit/segmint/internal/rules"
)

// SystemPrompt instructs a language model to answer with a rule tree only.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You convert a marketer's description of a target audience into customer segmentation rules.\n")
	b.WriteString("Answer with a single JSON object and nothing else, shaped as {\"rules\": GROUP}.\n\n")
	b.WriteString("GROUP is {\"operator\": \"AND\" | \"OR\", \"conditions\": [NODE, ...]}.\n")
	b.WriteString("NODE is either a GROUP or a CONDITION.\n")
	b.WriteString("CONDITION is {\"field\": FIELD, \"operator\": OPERATOR, \"value\": INTEGER}.\n\n")
	b.WriteString("FIELD is one of:\n")
	for _, f := range rules.Fields() {
		fmt.Fprintf(&b, "  %s (%s)\n", f.ID, f.Label)
	}
	b.WriteString("OPERATOR is one of:\n")
	for _, op := range rules.Operators() {
		fmt.Fprintf(&b, "  %s (%s)\n", op.ID, op.Label)
	}
	b.WriteString("\nValues are whole numbers: days, visits or currency units. ")
	b.WriteString("Use nested groups only when the description mixes AND and OR.")
	return b.String()
}

// ParseRules extracts a rule tree from model output. It accepts the
// {"rules": GROUP} envelope or a bare GROUP, optionally wrapped in a
// Markdown code fence or surrounded by prose.
func ParseRules(text string) (rules.Group, error) {
	body := extractJSON(text)
	if body == "" {
		return rules.Group{}, &errs.ServiceError{Op: "parse rules", Message: "response contains no JSON object"}
	}

	var envelope struct {
		Rules json.RawMessage `json:"rules"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return rules.Group{}, &errs.ServiceError{Op: "parse rules", Message: "response is not valid JSON", Err: err}
	}
	doc := []byte(body)
	if len(envelope.Rules) > 0 {
		doc = envelope.Rules
	}

	g, err := rules.ParseJSON(doc)
	if err != nil {
		return rules.Group{}, &errs.ServiceError{Op: "parse rules", Message: "response is not a rule tree", Err: err}
	}
	return g, nil
}

func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:] // drop the language tag
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
