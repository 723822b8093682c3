package store

import (
	"context"

	"github.com/ali123/ali123/internal/state"
	"github.com/ali123/ali123/types"
)

// ImportQueueStore persists import queue entries.
type ImportQueueStore interface {
	// Add inserts a pending entry with zero attempts and returns it with its generated id.
	Add(ctx context.Context, payload types.ImportPayload, meta types.EntryMeta) (*types.QueueEntry, error)

	// Update changes only the given fields and refreshes updated_at.
	// It returns nil without error when no entry has the id.
	Update(ctx context.Context, id int64, update types.EntryUpdate) (*types.QueueEntry, error)

	Delete(ctx context.Context, id int64) (bool, error)

	// Get returns nil without error when no entry has the id.
	Get(ctx context.Context, id int64) (*types.QueueEntry, error)

	// All lists entries ordered by scheduled_at ascending.
	All(ctx context.Context, filter types.QueueFilter) (*types.PaginationResult[types.QueueEntry], error)

	// ClaimDue moves up to limit due pending entries to processing and returns
	// only the ones this caller won. Concurrent callers never share an entry.
	ClaimDue(ctx context.Context, limit int, storeID *int64) ([]types.QueueEntry, error)

	// MarkFailed and MarkCompleted finish a claimed entry. They report false
	// when the entry is not currently processing.
	MarkFailed(ctx context.Context, id int64, message string) (bool, error)
	MarkCompleted(ctx context.Context, id int64) (bool, error)

	CountByStatus(ctx context.Context, storeID *int64) (map[state.JobStatus]int, error)
}
