package types

import (
	"encoding/json"

	"github.com/ali123/ali123/internal/state"
)

// ImportUpdate is an operator change to a queued import. Payload holds only
// the top-level payload keys to replace.
type ImportUpdate struct {
	Status        *state.JobStatus `json:"status,omitempty"`
	ScheduledTime any              `json:"scheduled_time,omitempty"`
	Payload       json.RawMessage  `json:"payload,omitempty"`
}

func (u ImportUpdate) IsEmpty() bool {
	return u.Status == nil && u.ScheduledTime == nil && len(u.Payload) == 0
}

// ListImportsFilter is the caller-facing form of QueueFilter.
type ListImportsFilter struct {
	Statuses []string
	StoreID  *int64
	Limit    int
	Offset   int
}
