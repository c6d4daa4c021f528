package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/crmkit/segmint/internal/rules"
)

func sampleTree() rules.Group {
	return rules.NewGroup(rules.Or,
		rules.Leaf(rules.Condition{Field: rules.FieldVisitCount, Operator: rules.OpLessThan, Value: 5}),
		rules.Nested(rules.NewGroup(rules.And,
			rules.Leaf(rules.Condition{Field: rules.FieldTotalSpend, Operator: rules.OpGreaterThanOrEqual, Value: 250}),
		)),
	)
}

func TestSaveAndLoadRules(t *testing.T) {
	for _, name := range []string{"rules.yaml", "rules.yml", "rules.json", "nested/dir/rules.JSON"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := SaveRules(path, sampleTree()); err != nil {
				t.Fatalf("SaveRules() failed: %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			isJSON := strings.HasPrefix(strings.TrimSpace(string(data)), "{")
			if isJSON != isJSONPath(path) {
				t.Errorf("Expected JSON=%v for %s, got:\n%s", isJSONPath(path), name, data)
			}

			got, err := LoadRules(path)
			if err != nil {
				t.Fatalf("LoadRules() failed: %v", err)
			}
			if diff := cmp.Diff(sampleTree(), got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadRules_Missing(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrNoRuleFile) {
		t.Errorf("Expected ErrNoRuleFile, got %v", err)
	}
}

func TestLoadRules_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"operator":"AND"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRules(path); !errors.Is(err, rules.ErrNotAGroup) {
		t.Errorf("Expected ErrNotAGroup, got %v", err)
	}
}

func TestSaveRules_SelectAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all.yaml")
	if err := SaveRules(path, rules.SelectAll()); err != nil {
		t.Fatalf("SaveRules() failed: %v", err)
	}
	got, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules() failed: %v", err)
	}
	if !got.SelectAll {
		t.Error("Expected select-all flag to survive the round trip")
	}
}
