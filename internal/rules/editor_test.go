package rules

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func cond(f Field, op Operator, v int) Node {
	return Leaf(Condition{Field: f, Operator: op, Value: v})
}

// sampleTree is AND[visit_count < 5, OR[totalspend > 100, days_inactive >= 30]].
func sampleTree() Group {
	return NewGroup(And,
		cond(FieldVisitCount, OpLessThan, 5),
		Nested(NewGroup(Or,
			cond(FieldTotalSpend, OpGreaterThan, 100),
			cond(FieldDaysInactive, OpGreaterThanOrEqual, 30),
		)),
	)
}

func mustApply(t *testing.T, tree Group, path Path, action Action, payload any) Group {
	t.Helper()
	out, err := Apply(tree, path, action, payload)
	if err != nil {
		t.Fatalf("Apply(%s, %s): %v", path, action, err)
	}
	return out
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestApply_AddGroupThenRemoveFirst(t *testing.T) {
	tree := NewGroup(And, cond(FieldVisitCount, OpLessThan, 90))
	added := NewGroup(And, cond(FieldTotalSpend, OpGreaterThan, 30))

	tree = mustApply(t, tree, Root().Conditions(), ActionAddGroup, added)
	if len(tree.Conditions) != 2 {
		t.Fatalf("after addGroup: got %d children, want 2", len(tree.Conditions))
	}
	if !tree.Conditions[1].IsGroup() {
		t.Fatal("appended child is not a group")
	}

	tree = mustApply(t, tree, NewPath(0), ActionRemove, nil)
	want := NewGroup(And, Nested(added))
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Errorf("after remove (-want +got):\n%s", diff)
	}
}

func TestApply_AddDefaults(t *testing.T) {
	tree := mustApply(t, NewGroup(Or), Root().Conditions(), ActionAdd, nil)
	tree = mustApply(t, tree, Root().Conditions(), ActionAddGroup, nil)

	want := NewGroup(Or, Leaf(DefaultCondition()), Nested(DefaultGroup()))
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestApply_RootOperatorIdempotent(t *testing.T) {
	once := mustApply(t, sampleTree(), Root(), ActionOperator, Or)
	twice := mustApply(t, once, Root(), ActionOperator, Or)
	if !Equal(once, twice) {
		t.Error("setting the same root operator twice changed the tree")
	}
	if once.Operator != Or {
		t.Errorf("root operator: got %q, want OR", once.Operator)
	}
	if once.Conditions[1].Group.Operator != Or {
		t.Error("nested group operator was touched")
	}
}

func TestApply_RootOperatorNormalizesCase(t *testing.T) {
	out := mustApply(t, sampleTree(), Root(), ActionOperator, "or")
	if out.Operator != Or {
		t.Errorf("got %q, want OR", out.Operator)
	}
}

func TestApply_NestedLogic(t *testing.T) {
	out, err := SetLogic(sampleTree(), NewPath(1), And)
	if err != nil {
		t.Fatal(err)
	}
	if out.Conditions[1].Group.Operator != And {
		t.Errorf("nested operator: got %q, want AND", out.Conditions[1].Group.Operator)
	}
	if out.Operator != And {
		t.Errorf("root operator changed to %q", out.Operator)
	}
}

func TestApply_AddThenRemoveRestores(t *testing.T) {
	tree := sampleTree()
	groupPath := NewPath(1)

	added, err := AddCondition(tree, groupPath, Condition{Field: FieldVisitCount, Operator: OpEqual, Value: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got := Count(added); got != Count(tree)+1 {
		t.Fatalf("count after add: got %d, want %d", got, Count(tree)+1)
	}

	last := len(added.Conditions[1].Group.Conditions) - 1
	restored, err := Remove(added, groupPath.Child(last))
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(restored, tree) {
		t.Errorf("add then remove did not restore the tree:\n%s", cmp.Diff(tree, restored))
	}
}

func TestApply_RemoveShiftsSiblings(t *testing.T) {
	tree := NewGroup(And,
		cond(FieldVisitCount, OpEqual, 0),
		cond(FieldVisitCount, OpEqual, 1),
		cond(FieldVisitCount, OpEqual, 2),
	)
	out := mustApply(t, tree, NewPath(0), ActionRemove, nil)

	n, err := Resolve(out, NewPath(0))
	if err != nil {
		t.Fatal(err)
	}
	if n.Condition.Value != 1 {
		t.Errorf("path 0 after remove: got value %d, want 1", n.Condition.Value)
	}
	if _, err := Resolve(out, NewPath(2)); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("stale path 2: got %v, want ErrPathNotFound", err)
	}
}

func TestApply_RemoveRootIsNoop(t *testing.T) {
	tree := sampleTree()
	out := mustApply(t, tree, Root(), ActionRemove, nil)
	if !Equal(out, tree) {
		t.Error("removing the root changed the tree")
	}
}

func TestApply_EmptyGroupKept(t *testing.T) {
	tree := NewGroup(And, Nested(NewGroup(Or, cond(FieldTotalSpend, OpEqual, 1))))
	out := mustApply(t, tree, NewPath(0, 0), ActionRemove, nil)
	if len(out.Conditions) != 1 || !out.Conditions[0].IsGroup() {
		t.Fatalf("nested group was collapsed: %+v", out)
	}
	if n := len(out.Conditions[0].Group.Conditions); n != 0 {
		t.Errorf("nested group: got %d children, want 0", n)
	}
	// still editable
	out = mustApply(t, out, NewPath(0).Conditions(), ActionAdd, nil)
	if Count(out) != 1 {
		t.Errorf("count: got %d, want 1", Count(out))
	}
}

// ---------------------------------------------------------------------------
// Leaf edits
// ---------------------------------------------------------------------------

func TestApply_LeafEdits(t *testing.T) {
	path := NewPath(1, 0)
	tests := []struct {
		name    string
		action  Action
		payload any
		want    Condition
	}{
		{"field", ActionField, FieldVisitCount, Condition{FieldVisitCount, OpGreaterThan, 100}},
		{"field string", ActionField, "days_inactive", Condition{FieldDaysInactive, OpGreaterThan, 100}},
		{"operator", ActionOperator, OpLessThanOrEqual, Condition{FieldTotalSpend, OpLessThanOrEqual, 100}},
		{"value int", ActionValue, 7, Condition{FieldTotalSpend, OpGreaterThan, 7}},
		{"value float", ActionValue, float64(12), Condition{FieldTotalSpend, OpGreaterThan, 12}},
		{"value json number", ActionValue, json.Number("250"), Condition{FieldTotalSpend, OpGreaterThan, 250}},
		{"value string", ActionValue, "42", Condition{FieldTotalSpend, OpGreaterThan, 42}},
		{"value string prefix", ActionValue, "42abc", Condition{FieldTotalSpend, OpGreaterThan, 42}},
		{"value string garbage", ActionValue, "abc", Condition{FieldTotalSpend, OpGreaterThan, 0}},
		{"value string negative", ActionValue, " -3", Condition{FieldTotalSpend, OpGreaterThan, -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := mustApply(t, sampleTree(), path, tt.action, tt.payload)
			n, err := Resolve(out, path)
			if err != nil {
				t.Fatal(err)
			}
			if n.Condition != tt.want {
				t.Errorf("got %+v, want %+v", n.Condition, tt.want)
			}
		})
	}
}

func TestApply_SiblingIsolation(t *testing.T) {
	tree := NewGroup(And,
		Nested(NewGroup(Or, cond(FieldVisitCount, OpEqual, 1))),
		Nested(NewGroup(Or, cond(FieldVisitCount, OpEqual, 2))),
	)
	before := Clone(tree)

	out := mustApply(t, tree, NewPath(1, 0), ActionValue, 99)

	if &out.Conditions[0].Group.Conditions[0] != &tree.Conditions[0].Group.Conditions[0] {
		t.Error("untouched sibling subtree was rebuilt")
	}
	if &out.Conditions[1].Group.Conditions[0] == &tree.Conditions[1].Group.Conditions[0] {
		t.Error("edited branch shares storage with the input")
	}
	if !Equal(tree, before) {
		t.Error("input tree was mutated")
	}
}

func TestApply_AppendDoesNotAliasInput(t *testing.T) {
	conds := make([]Node, 1, 8)
	conds[0] = cond(FieldVisitCount, OpEqual, 1)
	tree := Group{Operator: And, Conditions: conds}

	a := mustApply(t, tree, Root().Conditions(), ActionAdd, Condition{FieldVisitCount, OpEqual, 2})
	b := mustApply(t, tree, Root().Conditions(), ActionAdd, Condition{FieldVisitCount, OpEqual, 3})

	if a.Conditions[1].Condition.Value != 2 || b.Conditions[1].Condition.Value != 3 {
		t.Errorf("appends share spare capacity: a=%d b=%d", a.Conditions[1].Condition.Value, b.Conditions[1].Condition.Value)
	}
}

func TestApply_ClearsSelectAll(t *testing.T) {
	edits := []struct {
		name    string
		path    Path
		action  Action
		payload any
	}{
		{"root operator", Root(), ActionOperator, And},
		{"value", NewPath(0), ActionValue, 10},
		{"add", Root().Conditions(), ActionAdd, nil},
		{"remove", NewPath(0), ActionRemove, nil},
	}
	for _, tt := range edits {
		t.Run(tt.name, func(t *testing.T) {
			out := mustApply(t, SelectAll(), tt.path, tt.action, tt.payload)
			if out.SelectAll {
				t.Error("SelectAll still set after edit")
			}
		})
	}
}

func TestApply_PayloadShapes(t *testing.T) {
	payloads := []struct {
		name    string
		action  Action
		payload any
		group   bool
	}{
		{"condition pointer", ActionAdd, &Condition{FieldVisitCount, OpEqual, 1}, false},
		{"node", ActionAdd, cond(FieldVisitCount, OpEqual, 1), false},
		{"map", ActionAdd, map[string]any{"field": "visit_count", "operator": "equal", "value": 1}, false},
		{"raw json", ActionAdd, json.RawMessage(`{"field":"visit_count","operator":"equal","value":1}`), false},
		{"group pointer", ActionAddGroup, &Group{Operator: Or}, true},
		{"group json", ActionAddGroup, []byte(`{"operator":"OR","conditions":[]}`), true},
	}
	for _, tt := range payloads {
		t.Run(tt.name, func(t *testing.T) {
			out := mustApply(t, NewGroup(And), Root().Conditions(), tt.action, tt.payload)
			if len(out.Conditions) != 1 {
				t.Fatalf("got %d children, want 1", len(out.Conditions))
			}
			if out.Conditions[0].IsGroup() != tt.group {
				t.Errorf("IsGroup: got %v, want %v", out.Conditions[0].IsGroup(), tt.group)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    Path
		action  Action
		payload any
		wantErr error
	}{
		{"index out of range", NewPath(5), ActionValue, 1, ErrPathNotFound},
		{"descend into leaf", NewPath(0, 0), ActionValue, 1, ErrPathNotFound},
		{"append under leaf", NewPath(0).Conditions(), ActionAdd, nil, ErrPathNotFound},
		{"malformed path", Path{Index(0)}, ActionRemove, nil, ErrPathNotFound},
		{"add on root node", Root(), ActionAdd, nil, ErrInvalidAction},
		{"field on group", NewPath(1), ActionField, FieldVisitCount, ErrInvalidAction},
		{"value on group", NewPath(1), ActionValue, 3, ErrInvalidAction},
		{"add on a leaf path", NewPath(0), ActionAdd, nil, ErrInvalidAction},
		{"remove on array", Root().Conditions(), ActionRemove, nil, ErrInvalidAction},
		{"group payload for add", Root().Conditions(), ActionAdd, DefaultGroup(), ErrInvalidAction},
		{"condition payload for addGroup", Root().Conditions(), ActionAddGroup, DefaultCondition(), ErrInvalidAction},
		{"fractional value", NewPath(0), ActionValue, 2.5, ErrInvalidAction},
		{"bool value", NewPath(0), ActionValue, true, ErrInvalidAction},
		{"numeric field", NewPath(0), ActionField, 3, ErrInvalidAction},
		{"unknown action", NewPath(0), Action("rename"), "x", ErrInvalidAction},
		{"unknown nested logic", NewPath(1), ActionOperator, Logic("xor"), ErrInvalidAction},
		{"comparison operator as root logic", Root(), ActionOperator, "lessThan", ErrInvalidAction},
		{"empty root logic", Root(), ActionOperator, "", ErrInvalidAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(sampleTree(), tt.path, tt.action, tt.payload)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestApply_ErrorLeavesInputUntouched(t *testing.T) {
	tree := SelectAll()
	if _, err := Apply(tree, NewPath(3), ActionRemove, nil); err == nil {
		t.Fatal("expected error")
	}
	if diff := cmp.Diff(SelectAll(), tree, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("input changed (-want +got):\n%s", diff)
	}
}

// ---------------------------------------------------------------------------
// Typed wrappers
// ---------------------------------------------------------------------------

func TestTypedWrappers(t *testing.T) {
	tree, err := SetRootOperator(sampleTree(), Or)
	if err != nil {
		t.Fatal(err)
	}
	tree, err = AddGroup(tree, Root(), DefaultGroup())
	if err != nil {
		t.Fatal(err)
	}
	path := NewPath(2, 0)
	if tree, err = SetField(tree, path, FieldVisitCount); err != nil {
		t.Fatal(err)
	}
	if tree, err = SetOperator(tree, path, OpEqual); err != nil {
		t.Fatal(err)
	}
	if tree, err = SetValue(tree, path, 4); err != nil {
		t.Fatal(err)
	}

	want := NewGroup(Or,
		cond(FieldVisitCount, OpLessThan, 5),
		Nested(NewGroup(Or,
			cond(FieldTotalSpend, OpGreaterThan, 100),
			cond(FieldDaysInactive, OpGreaterThanOrEqual, 30),
		)),
		Nested(NewGroup(And, cond(FieldVisitCount, OpEqual, 4))),
	)
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
