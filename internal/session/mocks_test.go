package session

import (
	"github.com/stretchr/testify/mock"

	"github.com/sriail/browser-ig/internal/store"
)

type MockHistoryStore struct {
	mock.Mock
}

func (m *MockHistoryStore) Add(rec *store.Record) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *MockHistoryStore) MarkStopped(id, status string, exitCode *int) error {
	args := m.Called(id, status, exitCode)
	return args.Error(0)
}

// permissiveHistory accepts any history write; tests that assert on
// history set explicit expectations instead.
func permissiveHistory() *MockHistoryStore {
	h := &MockHistoryStore{}
	h.On("Add", mock.Anything).Return(nil).Maybe()
	h.On("MarkStopped", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return h
}

// fixedImages maps browsers to image paths; missing browsers resolve to "".
type fixedImages map[string]string

func (f fixedImages) Lookup(browser string) string {
	return f[browser]
}
