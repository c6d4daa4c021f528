// Package editor holds the state of one rule-tree editing session: the tree
// itself plus the UI mode around it (select-all, active tab, natural-language
// prompt and its in-flight status). Every tree change goes through the pure
// functions of package rules and is announced to subscribers.
package editor

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/crmkit/segmint/internal/rules"
)

// Tab is the active view of the editor.
type Tab string

const (
	TabBuilder Tab = "builder"
	TabNatural Tab = "natural"
)

// ErrEditorClosed is returned by every operation after Close, and by a
// natural-language generation whose response arrived after Close.
var ErrEditorClosed = errors.New("editor: closed")

// Editor owns one rule tree. It is safe for concurrent use; the only
// operation expected to overlap with others is a natural-language generation.
type Editor struct {
	mu         sync.Mutex
	tree       rules.Group
	selectAll  bool
	tab        Tab
	prompt     string
	processing bool
	lastErr    error
	version    uint64
	session    uint64 // bumped on Close; late bridge responses compare against it
	closed     bool

	bridge Bridge
	strict bool
	log    zerolog.Logger

	onChange []func(rules.Group)
	subsMu   sync.Mutex
	subs     map[chan rules.Group]struct{}
	notified uint64 // last version sent to subscribers, guarded by subsMu
}

// Option configures an Editor.
type Option func(*Editor)

// WithInitial seeds the editor with a previously saved tree.
func WithInitial(tree rules.Group) Option {
	return func(e *Editor) {
		e.tree = rules.Clone(tree)
		e.selectAll = tree.SelectAll
	}
}

// WithBridge sets the natural-language rule generator.
func WithBridge(b Bridge) Option {
	return func(e *Editor) { e.bridge = b }
}

// WithGeneratedValidation makes Generate reject trees that reference
// unregistered fields or operators instead of swapping them in as-is.
func WithGeneratedValidation(strict bool) Option {
	return func(e *Editor) { e.strict = strict }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Editor) { e.log = l }
}

// WithOnChange registers a callback fired synchronously after every change.
func WithOnChange(fn func(rules.Group)) Option {
	return func(e *Editor) { e.onChange = append(e.onChange, fn) }
}

// New creates an editor holding rules.DefaultTree unless WithInitial is given.
func New(opts ...Option) *Editor {
	e := &Editor{
		tree: rules.DefaultTree(),
		tab:  TabBuilder,
		log:  zerolog.Nop(),
		subs: make(map[chan rules.Group]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().Str("component", "editor").Logger()
	return e
}

// Tree returns a copy of the current tree.
func (e *Editor) Tree() rules.Group {
	e.mu.Lock()
	defer e.mu.Unlock()
	return rules.Clone(e.tree)
}

// SelectAll reports whether the canned select-all tree is active.
func (e *Editor) SelectAll() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectAll
}

// Tab returns the active view.
func (e *Editor) Tab() Tab {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tab
}

// SetTab switches the active view.
func (e *Editor) SetTab(t Tab) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tab = t
}

// Prompt returns the last natural-language description submitted.
func (e *Editor) Prompt() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prompt
}

// Processing reports whether a natural-language generation is in flight.
func (e *Editor) Processing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processing
}

// Err returns the error of the last natural-language generation, if any.
func (e *Editor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Version counts the changes applied since the editor was created.
func (e *Editor) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Apply runs one edit at path. Select-all mode is left before the edit takes
// effect. On error the editor state is unchanged.
func (e *Editor) Apply(path rules.Path, action rules.Action, payload any) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEditorClosed
	}
	next, err := rules.Apply(e.tree, path, action, payload)
	if err != nil {
		e.mu.Unlock()
		if errors.Is(err, rules.ErrPathNotFound) {
			e.log.Error().Err(err).Str("path", path.String()).Str("action", string(action)).Msg("edit targeted a stale path")
		}
		return err
	}
	e.selectAll = false
	snap, version := e.commitLocked(next)
	e.mu.Unlock()

	e.log.Debug().Str("path", path.String()).Str("action", string(action)).Int("conditions", rules.Count(snap)).Msg("edit applied")
	e.notify(snap, version)
	return nil
}

// SetRootOperator sets the root group's AND/OR.
func (e *Editor) SetRootOperator(l rules.Logic) error {
	return e.Apply(rules.Root(), rules.ActionOperator, l)
}

// SetLogic sets the AND/OR of the group at path.
func (e *Editor) SetLogic(path rules.Path, l rules.Logic) error {
	return e.Apply(path, rules.ActionOperator, l)
}

// AddCondition appends c to the group at groupPath.
func (e *Editor) AddCondition(groupPath rules.Path, c rules.Condition) error {
	return e.Apply(groupPath.Conditions(), rules.ActionAdd, c)
}

// AddGroup appends g to the group at groupPath.
func (e *Editor) AddGroup(groupPath rules.Path, g rules.Group) error {
	return e.Apply(groupPath.Conditions(), rules.ActionAddGroup, g)
}

// Remove deletes the node at path.
func (e *Editor) Remove(path rules.Path) error {
	return e.Apply(path, rules.ActionRemove, nil)
}

// SetField replaces the field of the condition at path.
func (e *Editor) SetField(path rules.Path, f rules.Field) error {
	return e.Apply(path, rules.ActionField, f)
}

// SetOperator replaces the comparison operator of the condition at path.
func (e *Editor) SetOperator(path rules.Path, op rules.Operator) error {
	return e.Apply(path, rules.ActionOperator, op)
}

// SetValue replaces the value of the condition at path.
func (e *Editor) SetValue(path rules.Path, v int) error {
	return e.Apply(path, rules.ActionValue, v)
}

// SelectAllCustomers swaps in the canned select-all tree.
func (e *Editor) SelectAllCustomers() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEditorClosed
	}
	e.selectAll = true
	snap, version := e.commitLocked(rules.SelectAll())
	e.mu.Unlock()

	e.log.Debug().Msg("select all customers")
	e.notify(snap, version)
	return nil
}

// Replace discards the current tree and holds tree instead.
func (e *Editor) Replace(tree rules.Group) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEditorClosed
	}
	e.selectAll = tree.SelectAll
	snap, version := e.commitLocked(rules.Clone(tree))
	e.mu.Unlock()

	e.notify(snap, version)
	return nil
}

// Close ends the session. Subscriber channels are closed and a generation
// still in flight will have its response discarded.
func (e *Editor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.session++
	e.mu.Unlock()

	e.subsMu.Lock()
	for ch := range e.subs {
		close(ch)
		delete(e.subs, ch)
	}
	e.subsMu.Unlock()
}

// commitLocked installs next and returns the copy handed to listeners along
// with the new version. e.mu must be held.
func (e *Editor) commitLocked(next rules.Group) (rules.Group, uint64) {
	e.tree = next
	e.version++
	return rules.Clone(next), e.version
}
