package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sriail/browser-ig/internal/session"
	"github.com/sriail/browser-ig/internal/store"
)

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context, opts session.CreateOpts) (*session.CreateResult, error) {
	args := m.Called(ctx, opts)
	if res := args.Get(0); res != nil {
		return res.(*session.CreateResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionService) Status(id string) (*session.Status, error) {
	args := m.Called(id)
	if st := args.Get(0); st != nil {
		return st.(*session.Status), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionService) Stop(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockSessionService) List() []session.Summary {
	args := m.Called()
	if list := args.Get(0); list != nil {
		return list.([]session.Summary)
	}
	return nil
}

func (m *MockSessionService) Active() int {
	args := m.Called()
	return args.Int(0)
}

type MockHistoryReader struct {
	mock.Mock
}

func (m *MockHistoryReader) Recent(limit int) ([]*store.Record, error) {
	args := m.Called(limit)
	if recs := args.Get(0); recs != nil {
		return recs.([]*store.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockHistoryReader) Counts() (*store.Counts, error) {
	args := m.Called()
	if c := args.Get(0); c != nil {
		return c.(*store.Counts), args.Error(1)
	}
	return nil, args.Error(1)
}

type fixedSlots struct {
	inUse, size int
}

func (f fixedSlots) InUse() int { return f.inUse }
func (f fixedSlots) Size() int  { return f.size }
