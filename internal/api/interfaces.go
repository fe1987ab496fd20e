package api

import (
	"context"

	"github.com/sriail/browser-ig/internal/session"
	"github.com/sriail/browser-ig/internal/store"
)

// SessionService abstracts session management operations needed by API handlers.
type SessionService interface {
	Create(ctx context.Context, opts session.CreateOpts) (*session.CreateResult, error)
	Status(id string) (*session.Status, error)
	Stop(id string) error
	List() []session.Summary
	Active() int
}

// HistoryReader exposes the persisted session history.
type HistoryReader interface {
	Recent(limit int) ([]*store.Record, error)
	Counts() (*store.Counts, error)
}

// SlotStats reports display slot occupancy for the status endpoint.
type SlotStats interface {
	InUse() int
	Size() int
}
