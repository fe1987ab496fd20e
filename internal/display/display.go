// Package display hands out VNC display slots, the one scarce numeric
// resource in the system. A slot maps to a fixed TCP port, so two live
// sessions must never hold the same slot.
package display

import (
	"errors"
	"sync"
)

// ErrExhausted is returned when every slot is in use.
var ErrExhausted = errors.New("no display slots available")

// BasePort is the VNC port convention: display N listens on BasePort+N.
// The emulator derives the port from the display number the same way, so
// this is not configurable.
const BasePort = 5900

type Allocator struct {
	mu   sync.Mutex
	used []bool
}

// New creates an allocator over slots [0, size).
func New(size int) *Allocator {
	return &Allocator{used: make([]bool, size)}
}

// Acquire reserves the lowest-numbered free slot. Lowest-free-first keeps
// the active set dense, so slot assignment is predictable.
func (a *Allocator) Acquire() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for slot, taken := range a.used {
		if !taken {
			a.used[slot] = true
			return slot, nil
		}
	}
	return 0, ErrExhausted
}

// Release returns a slot to the free set. Releasing a free or out-of-range
// slot is a no-op so teardown paths can release unconditionally.
func (a *Allocator) Release(slot int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if slot < 0 || slot >= len(a.used) {
		return
	}
	a.used[slot] = false
}

// Port returns the VNC TCP port for a slot.
func Port(slot int) int {
	return BasePort + slot
}

// Size returns the total number of slots.
func (a *Allocator) Size() int {
	return len(a.used)
}

// InUse returns the number of currently reserved slots.
func (a *Allocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, taken := range a.used {
		if taken {
			n++
		}
	}
	return n
}
