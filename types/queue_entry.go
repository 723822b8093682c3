package types

import (
	"time"

	"github.com/ali123/ali123/internal/state"
)

// QueueEntry is one unit of pending import work.
type QueueEntry struct {
	ID          int64           `json:"id"`
	StoreID     int64           `json:"store_id"`
	Status      state.JobStatus `json:"status"`
	Attempts    int             `json:"attempts"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	Payload     ImportPayload   `json:"payload"`
	LastError   *string         `json:"last_error"`
	LastErrorAt *time.Time      `json:"last_error_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// EntryMeta carries the insert-time attributes that are not part of the payload.
type EntryMeta struct {
	StoreID     int64
	ScheduledAt time.Time
}

// EntryUpdate lists the fields a store update may touch. Nil fields are left alone.
// A non-nil ExpectStatus makes the update apply only while the row still has
// that status.
type EntryUpdate struct {
	ExpectStatus   *state.JobStatus
	Status         *state.JobStatus
	ScheduledAt    *time.Time
	Payload        *ImportPayload
	LastError      *string
	LastErrorAt    *time.Time
	ClearLastError bool
}

func (u EntryUpdate) IsEmpty() bool {
	return u.Status == nil && u.ScheduledAt == nil && u.Payload == nil &&
		u.LastError == nil && u.LastErrorAt == nil && !u.ClearLastError
}

// QueueFilter narrows ImportQueueStore.All.
type QueueFilter struct {
	Statuses []state.JobStatus
	StoreID  *int64
	Limit    int
	Offset   int
}

// ProcessStats summarizes one process_queue invocation.
type ProcessStats struct {
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Rounds    int `json:"rounds"`
}
