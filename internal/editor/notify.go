package editor

import "github.com/crmkit/segmint/internal/rules"

// Subscribe registers a listener for tree changes and returns its channel and
// an unsubscribe func. Delivery never blocks the editor: the channel holds
// only the latest tree, replacing one the listener has not drained yet.
// After Close the returned channel is already closed.
func (e *Editor) Subscribe() (<-chan rules.Group, func()) {
	ch := make(chan rules.Group, 1)

	e.mu.Lock()
	e.subsMu.Lock()
	if e.closed {
		e.subsMu.Unlock()
		e.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	e.subs[ch] = struct{}{}
	e.subsMu.Unlock()
	e.mu.Unlock()

	unsub := func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
	}
	return ch, unsub
}

// notify fans tree out to callbacks and subscribers. version is the editor
// version tree was committed at; a change that lost the race to a newer one
// is not sent to subscribers.
func (e *Editor) notify(tree rules.Group, version uint64) {
	for _, fn := range e.onChange {
		fn(tree)
	}

	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	if version <= e.notified {
		return
	}
	e.notified = version
	for ch := range e.subs {
		replaceLatest(ch, tree)
	}
}

// replaceLatest puts tree in ch, dropping a stale undrained tree first.
// Callers hold subsMu, so they are the only sender.
func replaceLatest(ch chan rules.Group, tree rules.Group) {
	for {
		select {
		case ch <- tree:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
