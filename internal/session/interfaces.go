package session

import (
	"errors"

	"github.com/sriail/browser-ig/internal/store"
)

// Sentinel errors surfaced to the API layer.
var (
	ErrNotFound      = errors.New("session not found")
	ErrNotRunning    = errors.New("session not running")
	ErrInvalidConfig = errors.New("invalid session configuration")
	ErrSpawnFailed   = errors.New("failed to spawn emulator")
)

// SlotAllocator hands out display slots. Acquire fails when the pool is
// exhausted; Release is idempotent.
type SlotAllocator interface {
	Acquire() (int, error)
	Release(slot int)
}

// ImageProvider resolves a browser variant to a local disk image path, or
// "" when none is available (normal outcome, forces simulated mode).
type ImageProvider interface {
	Lookup(browser string) string
}

// HistoryStore records session lifecycles durably.
type HistoryStore interface {
	Add(rec *store.Record) error
	MarkStopped(id, status string, exitCode *int) error
}
