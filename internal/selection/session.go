// Package selection holds the per-ticket working sets of knowledge documents a
// reviewer picks before (re)generating a draft.
package selection

import (
	"errors"
	"sync"
)

var (
	// ErrNoSession is returned when a ticket has no open session.
	ErrNoSession = errors.New("no source selection session")
	// ErrEmptySelection is returned when committing a session with nothing selected.
	ErrEmptySelection = errors.New("at least one source must be selected")
)

// Session is a snapshot of one ticket's working set.
type Session struct {
	TicketID string
	// Selected lists chosen documents in the order they were added.
	Selected []string
	// Suggested lists the AI defaults the session was seeded with.
	Suggested []string
}

// IsSuggested reports whether doc came from the AI defaults.
func (s Session) IsSuggested(doc string) bool {
	for _, candidate := range s.Suggested {
		if candidate == doc {
			return true
		}
	}
	return false
}

// Modified reports whether the selection differs from the AI defaults.
func (s Session) Modified() bool {
	if len(s.Selected) != len(s.Suggested) {
		return true
	}
	for _, doc := range s.Selected {
		if !s.IsSuggested(doc) {
			return true
		}
	}
	return false
}

type workingSet struct {
	suggested []string
	selected  []string
}

func (w *workingSet) index(doc string) int {
	for i, candidate := range w.selected {
		if candidate == doc {
			return i
		}
	}
	return -1
}

// Manager owns all open sessions. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*workingSet
}

// NewManager returns a manager without sessions.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*workingSet)}
}

// Open starts a session seeded with defaults. An already open session is
// returned unchanged so repeated opens keep the reviewer's picks.
func (m *Manager) Open(ticketID string, defaults []string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.sessions[ticketID]; ok {
		return snapshot(ticketID, set)
	}
	set := &workingSet{}
	for _, doc := range defaults {
		if doc == "" || set.index(doc) >= 0 {
			continue
		}
		set.selected = append(set.selected, doc)
		set.suggested = append(set.suggested, doc)
	}
	m.sessions[ticketID] = set
	return snapshot(ticketID, set)
}

// Toggle flips membership of doc in the ticket's session.
func (m *Manager) Toggle(ticketID, doc string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sessions[ticketID]
	if !ok {
		return Session{}, ErrNoSession
	}
	if i := set.index(doc); i >= 0 {
		set.selected = append(set.selected[:i], set.selected[i+1:]...)
	} else {
		set.selected = append(set.selected, doc)
	}
	return snapshot(ticketID, set), nil
}

// Get returns the open session for ticketID.
func (m *Manager) Get(ticketID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sessions[ticketID]
	if !ok {
		return Session{}, false
	}
	return snapshot(ticketID, set), true
}

// Selection returns the documents to scope a generation with. It fails when
// there is no session or the session is empty; the session stays open.
func (m *Manager) Selection(ticketID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sessions[ticketID]
	if !ok {
		return nil, ErrNoSession
	}
	if len(set.selected) == 0 {
		return nil, ErrEmptySelection
	}
	return append([]string(nil), set.selected...), nil
}

// Discard drops the ticket's session. It reports whether one existed.
func (m *Manager) Discard(ticketID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[ticketID]
	delete(m.sessions, ticketID)
	return ok
}

func snapshot(ticketID string, set *workingSet) Session {
	return Session{
		TicketID:  ticketID,
		Selected:  append([]string{}, set.selected...),
		Suggested: append([]string{}, set.suggested...),
	}
}
