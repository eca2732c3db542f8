package pipeline

import (
	"sync"
)

// EventType identifies session events.
type EventType int

const (
	EventLanesDetected EventType = iota
	EventBandsDetected
	EventWeightsComputed
	EventBandsMatched
	EventTreeBuilt
)

// EventListener is called with the snapshot that triggered the event.
type EventListener func(s *Snapshot)

// Session holds the current snapshot of an interactive analysis and
// notifies listeners whenever a stage completes.
type Session struct {
	mu        sync.RWMutex
	current   *Snapshot
	listeners map[EventType][]EventListener
}

// NewSession creates a session starting at s.
func NewSession(s *Snapshot) *Session {
	return &Session{
		current:   s,
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (ss *Session) On(event EventType, listener EventListener) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.listeners[event] = append(ss.listeners[event], listener)
}

// Current returns the current snapshot.
func (ss *Session) Current() *Snapshot {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.current
}

func (ss *Session) advance(event EventType, stage func(*Snapshot) (*Snapshot, error)) error {
	next, err := stage(ss.Current())
	if err != nil {
		return err
	}

	ss.mu.Lock()
	ss.current = next
	listeners := append([]EventListener(nil), ss.listeners[event]...)
	ss.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return nil
}

// DetectLanes runs lane detection on the current snapshot.
func (ss *Session) DetectLanes() error {
	return ss.advance(EventLanesDetected, (*Snapshot).DetectLanes)
}

// DetectBands runs band detection on the current snapshot.
func (ss *Session) DetectBands() error {
	return ss.advance(EventBandsDetected, (*Snapshot).DetectBands)
}

// ComputeWeights runs weight estimation on the current snapshot.
func (ss *Session) ComputeWeights(ladder Ladder) error {
	return ss.advance(EventWeightsComputed, func(s *Snapshot) (*Snapshot, error) {
		return s.ComputeWeights(ladder)
	})
}

// MatchBands runs band matching on the current snapshot.
func (ss *Session) MatchBands() error {
	return ss.advance(EventBandsMatched, (*Snapshot).MatchBands)
}

// BuildTree builds the tree on the current snapshot.
func (ss *Session) BuildTree() error {
	return ss.advance(EventTreeBuilt, (*Snapshot).BuildTree)
}
