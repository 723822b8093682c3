package state

import (
	"fmt"
	"strings"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

func (s JobStatus) String() string {
	return string(s)
}

func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var AllStatuses = []JobStatus{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

// ParseStatus validates a status string coming from an API caller.
func ParseStatus(s string) (JobStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for _, status := range AllStatuses {
		if string(status) == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown import status %q", s)
}

type Transition struct {
	From JobStatus
	To   JobStatus
}

// ValidTransitions is the processing pipeline. Nothing leaves a terminal state here.
var ValidTransitions = []Transition{
	{From: StatusPending, To: StatusProcessing},
	{From: StatusProcessing, To: StatusCompleted},
	{From: StatusProcessing, To: StatusFailed},
}

// OperatorTransitions are the status changes an operator may request through
// the API. Requeueing a failed entry is the only way back to pending.
var OperatorTransitions = []Transition{
	{From: StatusFailed, To: StatusPending},
	{From: StatusPending, To: StatusFailed},
}

func IsValidTransition(from, to JobStatus) bool {
	return contains(ValidTransitions, from, to)
}

func IsValidOperatorTransition(from, to JobStatus) bool {
	return from == to || contains(OperatorTransitions, from, to)
}

func contains(transitions []Transition, from, to JobStatus) bool {
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}
