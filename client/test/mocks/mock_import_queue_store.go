package mocks

import (
	"context"

	"github.com/ali123/ali123/internal/state"
	"github.com/ali123/ali123/types"
)

// MockImportQueueStore is a mock implementation of store.ImportQueueStore for testing.
type MockImportQueueStore struct {
	AddFunc           func(ctx context.Context, payload types.ImportPayload, meta types.EntryMeta) (*types.QueueEntry, error)
	UpdateFunc        func(ctx context.Context, id int64, update types.EntryUpdate) (*types.QueueEntry, error)
	DeleteFunc        func(ctx context.Context, id int64) (bool, error)
	GetFunc           func(ctx context.Context, id int64) (*types.QueueEntry, error)
	AllFunc           func(ctx context.Context, filter types.QueueFilter) (*types.PaginationResult[types.QueueEntry], error)
	ClaimDueFunc      func(ctx context.Context, limit int, storeID *int64) ([]types.QueueEntry, error)
	MarkFailedFunc    func(ctx context.Context, id int64, message string) (bool, error)
	MarkCompletedFunc func(ctx context.Context, id int64) (bool, error)
	CountByStatusFunc func(ctx context.Context, storeID *int64) (map[state.JobStatus]int, error)
}

func (m *MockImportQueueStore) Add(ctx context.Context, payload types.ImportPayload, meta types.EntryMeta) (*types.QueueEntry, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, payload, meta)
	}
	return &types.QueueEntry{ID: 1, StoreID: meta.StoreID, Status: state.StatusPending, ScheduledAt: meta.ScheduledAt, Payload: payload}, nil
}

func (m *MockImportQueueStore) Update(ctx context.Context, id int64, update types.EntryUpdate) (*types.QueueEntry, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, update)
	}
	return nil, nil
}

func (m *MockImportQueueStore) Delete(ctx context.Context, id int64) (bool, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return true, nil
}

func (m *MockImportQueueStore) Get(ctx context.Context, id int64) (*types.QueueEntry, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockImportQueueStore) All(ctx context.Context, filter types.QueueFilter) (*types.PaginationResult[types.QueueEntry], error) {
	if m.AllFunc != nil {
		return m.AllFunc(ctx, filter)
	}
	return types.NewPaginationResult[types.QueueEntry](nil, 0, filter.Limit, filter.Offset), nil
}

func (m *MockImportQueueStore) ClaimDue(ctx context.Context, limit int, storeID *int64) ([]types.QueueEntry, error) {
	if m.ClaimDueFunc != nil {
		return m.ClaimDueFunc(ctx, limit, storeID)
	}
	return nil, nil
}

func (m *MockImportQueueStore) MarkFailed(ctx context.Context, id int64, message string) (bool, error) {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id, message)
	}
	return true, nil
}

func (m *MockImportQueueStore) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	if m.MarkCompletedFunc != nil {
		return m.MarkCompletedFunc(ctx, id)
	}
	return true, nil
}

func (m *MockImportQueueStore) CountByStatus(ctx context.Context, storeID *int64) (map[state.JobStatus]int, error) {
	if m.CountByStatusFunc != nil {
		return m.CountByStatusFunc(ctx, storeID)
	}
	return map[state.JobStatus]int{}, nil
}
