package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/crmkit/segmint/internal/rules"
)

// DefaultRuleFile is the rule file used when --file is not given.
const DefaultRuleFile = "segment-rules.yaml"

// ErrNoRuleFile is returned when the rule file does not exist yet.
var ErrNoRuleFile = errors.New("rule file not found (run 'segmint rules init' first)")

// isJSONPath reports whether path is read and written as JSON. Anything
// other than .json is YAML.
func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// LoadRules reads a rule tree from path, JSON or YAML by extension.
func LoadRules(path string) (rules.Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rules.Group{}, fmt.Errorf("%w: %s", ErrNoRuleFile, path)
		}
		return rules.Group{}, fmt.Errorf("failed to read rule file: %w", err)
	}

	var tree rules.Group
	if isJSONPath(path) {
		tree, err = rules.ParseJSON(data)
	} else {
		tree, err = rules.ParseYAML(data)
	}
	if err != nil {
		return rules.Group{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return tree, nil
}

// SaveRules writes tree to path, JSON or YAML by extension.
func SaveRules(path string, tree rules.Group) error {
	data, err := encodeRules(tree, isJSONPath(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write rule file: %w", err)
	}
	return nil
}

func encodeRules(tree rules.Group, asJSON bool) ([]byte, error) {
	if asJSON {
		data, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON: %w", err)
		}
		return append(data, '\n'), nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}
