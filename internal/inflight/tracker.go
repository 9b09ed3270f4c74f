// Package inflight tracks which tickets have a generation or send in flight.
//
// Each ticket gets a small guard record in a shared arena. A record holds at
// most one operation: a send cannot start while a generation runs for the same
// ticket and vice versa. Records are dropped once both flags clear.
package inflight

import "sync"

// State is a snapshot of one ticket's guard record.
type State struct {
	Generating bool
	Sending    bool
}

// Busy reports whether any operation is in flight.
func (s State) Busy() bool {
	return s.Generating || s.Sending
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	guards map[string]*State
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{guards: make(map[string]*State)}
}

// TryBeginGenerating marks id as generating. It returns false without side
// effects when a generation or send is already in flight for id.
func (t *Tracker) TryBeginGenerating(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	guard := t.guardLocked(id)
	if guard.Busy() {
		return false
	}
	guard.Generating = true
	return true
}

// EndGenerating releases the generation guard taken by TryBeginGenerating.
func (t *Tracker) EndGenerating(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if guard, ok := t.guards[id]; ok {
		guard.Generating = false
		t.pruneLocked(id, guard)
	}
}

// TryBeginSending marks id as sending. It returns false without side effects
// when a send or generation is already in flight for id.
func (t *Tracker) TryBeginSending(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	guard := t.guardLocked(id)
	if guard.Busy() {
		return false
	}
	guard.Sending = true
	return true
}

// EndSending releases the send guard taken by TryBeginSending.
func (t *Tracker) EndSending(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if guard, ok := t.guards[id]; ok {
		guard.Sending = false
		t.pruneLocked(id, guard)
	}
}

// State returns the current flags for id.
func (t *Tracker) State(id string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if guard, ok := t.guards[id]; ok {
		return *guard
	}
	return State{}
}

// Len returns the number of tickets with an operation in flight.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.guards)
}

func (t *Tracker) guardLocked(id string) *State {
	guard, ok := t.guards[id]
	if !ok {
		guard = &State{}
		t.guards[id] = guard
	}
	return guard
}

func (t *Tracker) pruneLocked(id string, guard *State) {
	if !guard.Busy() {
		delete(t.guards, id)
	}
}
