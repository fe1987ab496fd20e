package session

import (
	"sync"
	"time"

	"github.com/sriail/browser-ig/internal/buffer"
	"github.com/sriail/browser-ig/internal/display"
	"github.com/sriail/browser-ig/internal/engine"
)

// state is the session lifecycle: Starting -> Running -> Stopped. Removal
// from the registry happens a grace period after Stopped. A launch failure
// goes Starting -> Stopped directly; a stopped session is never resurrected.
type state int

const (
	stateStarting state = iota
	stateRunning
	stateStopped
)

// Session is one emulator-backed browser session. Identity and
// configuration are immutable after creation; the lifecycle state and the
// process handle are guarded by mu. The output buffer serializes itself.
type Session struct {
	id        string
	browser   string
	ramMB     int
	vramMB    int
	slot      int
	imagePath string
	createdAt time.Time
	buf       *buffer.Buffer

	mu        sync.Mutex
	state     state
	simulated bool
	handle    engine.Handle
}

func newSession(id, browser string, ramMB, vramMB, slot int, imagePath string, bufBytes int) *Session {
	return &Session{
		id:        id,
		browser:   browser,
		ramMB:     ramMB,
		vramMB:    vramMB,
		slot:      slot,
		imagePath: imagePath,
		createdAt: time.Now().UTC(),
		buf:       buffer.New(bufBytes),
	}
}

func (s *Session) port() int {
	return display.Port(s.slot)
}

// markRunning attaches the process handle. The transition to Running only
// happens from Starting: if the process already exited (markStopped won
// the race), the session stays Stopped.
func (s *Session) markRunning(h engine.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = h
	s.simulated = h.Simulated()
	if s.state == stateStarting {
		s.state = stateRunning
	}
}

// markStopped transitions to Stopped and reports whether this call made
// the transition. The transition happens exactly once.
func (s *Session) markStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateStopped {
		return false
	}
	s.state = stateStopped
	return true
}

func (s *Session) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}

func (s *Session) isSimulated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simulated
}

// terminate requests a graceful process stop. Safe to call at any point in
// the lifecycle; without a handle (launch failed) it is a no-op.
func (s *Session) terminate() {
	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()
	if h != nil {
		h.Terminate()
	}
}

func (s *Session) configSummary() ConfigSummary {
	return ConfigSummary{
		Browser: s.browser,
		RAMMB:   s.ramMB,
		VRAMMB:  s.vramMB,
	}
}

func (s *Session) summary() Summary {
	return Summary{
		ID:            s.id,
		Config:        s.configSummary(),
		Running:       s.running(),
		Simulated:     s.isSimulated(),
		UptimeSeconds: int(time.Since(s.createdAt).Seconds()),
		Display:       s.slot,
		DisplayPort:   s.port(),
		CreatedAt:     s.createdAt,
	}
}
