// Package validation provides validation rules for segment data and request parameters.
package validation

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/crmkit/segmint/internal/errs"
	"github.com/crmkit/segmint/internal/rules"
)

const (
	// MaxTitleLength is the maximum length for segment titles
	MaxTitleLength = 120
	// MaxDescriptionLength is the maximum length for segment descriptions
	MaxDescriptionLength = 500
	// MaxPromptLength is the maximum length for a natural-language description
	MaxPromptLength = 2000
	// MaxSegmentIDLength is the maximum length for segment identifiers
	MaxSegmentIDLength = 64
	// MaxRuleDepth is the maximum nesting depth of a rule tree
	MaxRuleDepth = 8
	// MaxRuleConditions is the maximum number of conditions in a rule tree
	MaxRuleConditions = 100
	// MaxCampaignNameLength is the maximum length for campaign names
	MaxCampaignNameLength = 120
	// MaxCampaignContentLength is the maximum length for a campaign message
	MaxCampaignContentLength = 1000
	// MaxObjectiveLength is the maximum length for a campaign objective
	MaxObjectiveLength = 500
)

// idPattern matches alphanumeric characters, underscores, and hyphens
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidationResult holds the result of validation
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Merge combines another validation result into this one
func (v *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(field, message)
	}
}

// Err returns nil for a valid result, otherwise an errs.ValidationError for
// the alphabetically first failing field.
func (v *ValidationResult) Err() error {
	if v.Valid {
		return nil
	}
	fields := make([]string, 0, len(v.Errors))
	for f := range v.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return errs.Invalid(fields[0], v.Errors[fields[0]])
}

// SegmentParams contains the parameters for validating a segment
type SegmentParams struct {
	Title       string
	Description string
	Rules       *rules.Group
}

// ValidateSegment validates all segment fields and returns a validation result
func ValidateSegment(params SegmentParams) *ValidationResult {
	result := NewValidationResult()

	result.Merge(ValidateTitle(params.Title))
	result.Merge(ValidateDescription(params.Description))

	if params.Rules == nil {
		result.AddError("rules", "Rules are required")
	} else {
		result.Merge(ValidateRuleShape(*params.Rules))
	}

	return result
}

// ValidateTitle validates a segment title
func ValidateTitle(title string) *ValidationResult {
	result := NewValidationResult()
	title = strings.TrimSpace(title)

	if title == "" {
		result.AddError("title", "Title is required")
		return result
	}

	if utf8.RuneCountInString(title) > MaxTitleLength {
		result.AddError("title", "Title must not exceed 120 characters")
	}

	return result
}

// ValidateDescription validates a segment description
func ValidateDescription(description string) *ValidationResult {
	result := NewValidationResult()

	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		result.AddError("description", "Description must not exceed 500 characters")
	}

	return result
}

// ValidatePrompt validates a natural-language audience description
func ValidatePrompt(prompt string) *ValidationResult {
	result := NewValidationResult()

	if strings.TrimSpace(prompt) == "" {
		result.AddError("prompt", "Please enter a description of your target audience")
		return result
	}

	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		result.AddError("prompt", "Description must not exceed 2000 characters")
	}

	return result
}

// ValidateSegmentID validates a segment identifier
func ValidateSegmentID(id string) *ValidationResult {
	result := NewValidationResult()
	id = strings.TrimSpace(id)

	if id == "" {
		result.AddError("id", "Segment ID is required")
		return result
	}

	if len(id) > MaxSegmentIDLength || !idPattern.MatchString(id) {
		result.AddError("id", "Segment ID must contain only alphanumeric characters, underscores, and hyphens")
	}

	return result
}

// ValidateRuleShape checks the size limits and root operator of a rule tree.
// Field and operator identifiers are left to ValidateRuleIdentifiers.
func ValidateRuleShape(tree rules.Group) *ValidationResult {
	result := NewValidationResult()

	if !tree.Operator.IsKnown() {
		result.AddError("rules", "Root operator must be AND or OR")
		return result
	}
	if rules.Depth(tree) > MaxRuleDepth {
		result.AddError("rules", "Rules must not be nested deeper than 8 levels")
		return result
	}
	if rules.Count(tree) > MaxRuleConditions {
		result.AddError("rules", "Rules must not contain more than 100 conditions")
	}

	return result
}

// ValidateRuleIdentifiers reports the first unregistered field, unsupported
// operator or bad group operator in the tree.
func ValidateRuleIdentifiers(tree rules.Group) *ValidationResult {
	result := NewValidationResult()

	if err := rules.Validate(tree); err != nil {
		result.AddError("rules", err.Error())
	}

	return result
}

// CampaignParams contains the parameters for validating a campaign
type CampaignParams struct {
	Name      string
	Content   string
	SegmentID string
}

// ValidateCampaign validates all campaign fields and returns a validation result
func ValidateCampaign(params CampaignParams) *ValidationResult {
	result := NewValidationResult()

	name := strings.TrimSpace(params.Name)
	switch {
	case name == "":
		result.AddError("name", "Campaign name is required")
	case utf8.RuneCountInString(name) > MaxCampaignNameLength:
		result.AddError("name", "Campaign name must not exceed 120 characters")
	}

	content := strings.TrimSpace(params.Content)
	switch {
	case content == "":
		result.AddError("content", "Message is required")
	case utf8.RuneCountInString(content) > MaxCampaignContentLength:
		result.AddError("content", "Message must not exceed 1000 characters")
	}

	if segment := ValidateSegmentID(params.SegmentID); !segment.Valid {
		result.AddError("segment_id", "Select a target segment")
	}

	return result
}

// ValidateObjective validates the goal sent to the campaign message generator
func ValidateObjective(objective string) *ValidationResult {
	result := NewValidationResult()

	if strings.TrimSpace(objective) == "" {
		result.AddError("objective", "Please describe the goal of your campaign")
		return result
	}

	if utf8.RuneCountInString(objective) > MaxObjectiveLength {
		result.AddError("objective", "Objective must not exceed 500 characters")
	}

	return result
}
