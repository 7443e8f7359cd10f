package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore implements the Store interface for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, col Collection, id string) (Document, error) {
	args := m.Called(ctx, col, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) List(ctx context.Context, col Collection, ownerID string, opts *ListOptions) ([]Document, error) {
	args := m.Called(ctx, col, ownerID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Document), args.Error(1)
}

func (m *MockStore) Set(ctx context.Context, col Collection, id string, doc Document, merge bool) error {
	args := m.Called(ctx, col, id, doc, merge)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, col Collection, id string) error {
	args := m.Called(ctx, col, id)
	return args.Error(0)
}

func (m *MockStore) NewID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockStore) Batch() Batch {
	args := m.Called()
	return args.Get(0).(Batch)
}

// MockBatch implements the Batch interface for testing
type MockBatch struct {
	mock.Mock
}

func (m *MockBatch) Set(col Collection, id string, doc Document, merge bool) {
	m.Called(col, id, doc, merge)
}

func (m *MockBatch) Delete(col Collection, id string) {
	m.Called(col, id)
}

func (m *MockBatch) Len() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockBatch) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
