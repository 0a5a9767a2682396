// Package workorder holds the work-order lifecycle as one pure, unit-testable
// module: typed statuses, the fixed field-visit sequence, and the guard
// predicates every caller (handlers, services, websocket events) shares.
package workorder

import "fmt"

// Status is the coarse work-order lifecycle state.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusPending    Status = "pending"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ParseStatus validates a coarse status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusPending, StatusCompleted, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

// WorkStatus is the fine-grained field-visit sub-state, distinct from Status.
type WorkStatus string

const (
	WorkNotStarted WorkStatus = "not_started"
	WorkInRoute    WorkStatus = "in_route"
	WorkCheckedIn  WorkStatus = "checked_in"
	WorkCheckedOut WorkStatus = "checked_out"
	WorkCompleted  WorkStatus = "completed"
)

// ParseWorkStatus validates a work-status string.
func ParseWorkStatus(s string) (WorkStatus, error) {
	switch WorkStatus(s) {
	case WorkNotStarted, WorkInRoute, WorkCheckedIn, WorkCheckedOut, WorkCompleted:
		return WorkStatus(s), nil
	default:
		return "", fmt.Errorf("unknown work status: %s", s)
	}
}

// sequence is the fixed forward order of field-visit sub-states.
var sequence = []WorkStatus{WorkNotStarted, WorkInRoute, WorkCheckedIn, WorkCheckedOut, WorkCompleted}

// Next returns the step following ws in the visit sequence. ok is false at the end.
func Next(ws WorkStatus) (next WorkStatus, ok bool) {
	for i, s := range sequence {
		if s == ws && i+1 < len(sequence) {
			return sequence[i+1], true
		}
	}
	return "", false
}

// allowedTransitions holds every legal work-status move: exactly one step forward,
// plus the single revert completed -> checked_out ("Mark Incomplete").
var allowedTransitions = map[WorkStatus]map[WorkStatus]bool{
	WorkNotStarted: {WorkInRoute: true},
	WorkInRoute:    {WorkCheckedIn: true},
	WorkCheckedIn:  {WorkCheckedOut: true},
	WorkCheckedOut: {WorkCompleted: true},
	WorkCompleted:  {WorkCheckedOut: true},
}

// CanTransition reports whether the visit sequence allows moving from -> to.
func CanTransition(from, to WorkStatus) bool {
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}
