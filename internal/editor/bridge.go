package editor

import (
	"context"
	"errors"
	"strings"

	"github.com/crmkit/segmint/internal/errs"
	"github.com/crmkit/segmint/internal/rules"
)

// Bridge turns a free-text audience description into a rule tree.
type Bridge interface {
	Generate(ctx context.Context, prompt string) (rules.Group, error)
}

var (
	// ErrBusy is returned when a generation is requested while one is in flight.
	ErrBusy = errors.New("editor: rule generation already in progress")
	// ErrNoBridge is returned when no natural-language generator is configured.
	ErrNoBridge = errors.New("editor: no rule generator configured")
)

// Generate sends prompt to the bridge and, on success, replaces the whole
// tree with the result, leaves select-all mode and switches to the builder
// view. Blank prompts fail with a ValidationError before any call is made.
// On failure the tree is left as it was and the error is kept for Err.
//
// There is one attempt per call and no cancellation besides ctx. A response
// that arrives after Close is discarded and ErrEditorClosed is returned.
func (e *Editor) Generate(ctx context.Context, prompt string) error {
	session, bridge, err := e.beginGenerate(prompt)
	if err != nil {
		return err
	}
	tree, err := bridge.Generate(ctx, prompt)
	return e.finishGenerate(session, tree, err)
}

// GenerateAsync is Generate on a goroutine. Input validation and the busy
// check happen before it returns; the channel yields the final result.
func (e *Editor) GenerateAsync(ctx context.Context, prompt string) <-chan error {
	done := make(chan error, 1)

	session, bridge, err := e.beginGenerate(prompt)
	if err != nil {
		done <- err
		close(done)
		return done
	}

	go func() {
		defer close(done)
		tree, err := bridge.Generate(ctx, prompt)
		done <- e.finishGenerate(session, tree, err)
	}()
	return done
}

func (e *Editor) beginGenerate(prompt string) (uint64, Bridge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, nil, ErrEditorClosed
	}
	if strings.TrimSpace(prompt) == "" {
		e.lastErr = errs.Invalid("prompt", "description required")
		return 0, nil, e.lastErr
	}
	if e.bridge == nil {
		return 0, nil, ErrNoBridge
	}
	if e.processing {
		return 0, nil, ErrBusy
	}

	e.prompt = prompt
	e.processing = true
	e.lastErr = nil
	return e.session, e.bridge, nil
}

func (e *Editor) finishGenerate(session uint64, tree rules.Group, err error) error {
	if err == nil && e.strict {
		if verr := rules.Validate(tree); verr != nil {
			err = &errs.ServiceError{Op: "generate rules", Message: "generated rules rejected", Err: verr}
		}
	}

	e.mu.Lock()
	if e.closed || session != e.session {
		e.mu.Unlock()
		e.log.Debug().Msg("discarding rule generation response for closed editor")
		return ErrEditorClosed
	}
	e.processing = false
	if err != nil {
		e.lastErr = errs.Service("generate rules", err)
		e.mu.Unlock()
		e.log.Warn().Err(err).Msg("rule generation failed")
		return e.lastErr
	}

	e.selectAll = false
	e.tab = TabBuilder
	next := rules.Clone(tree)
	next.SelectAll = false
	snap, version := e.commitLocked(next)
	e.mu.Unlock()

	e.log.Info().Int("conditions", rules.Count(snap)).Str("fingerprint", rules.Fingerprint(snap)).Msg("generated rules applied")
	e.notify(snap, version)
	return nil
}
