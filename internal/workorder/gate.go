package workorder

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role mirrors the user roles known to the lifecycle guards.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleDispatcher Role = "dispatcher"
	RoleFieldAgent Role = "field_agent"
)

// ConfirmWindow is how long before the due date a field agent may confirm their
// own work order. Compared on absolute instants so DST shifts do not move it.
const ConfirmWindow = 24 * time.Hour

// Transition button labels, one per step.
const (
	LabelConfirm            = "Confirm Work Order"
	LabelStartRoute         = "Start Route"
	LabelCheckIn            = "Check In"
	LabelCheckOut           = "Check Out"
	LabelMarkComplete       = "Mark Complete"
	LabelCompleteTasksFirst = "Complete All Tasks First"
	LabelMarkIncomplete     = "Mark Incomplete"
)

// Confirmation prose. The forward and revert texts are deliberately distinct.
const (
	ConfirmCompletePrompt = "Mark this work order as complete? The office will be notified and the task checklist will be locked."
	ConfirmReopenPrompt   = "Reopen this work order? Its status will return to checked out until it is completed again."
)

// Guard-failure reasons surfaced to callers verbatim.
const (
	ReasonNotAssignee   = "only the assigned agent can perform this action"
	ReasonOutsideWindow = "confirmation opens 24 hours before the due date"
	ReasonCancelled     = "work order is cancelled"
)

// IncompleteReason renders the task-gating failure for n incomplete tasks.
func IncompleteReason(n int) string {
	return fmt.Sprintf("%d task(s) still incomplete", n)
}

// Order is the slice of a work order the gate needs. Callers map their
// persistence model into it.
type Order struct {
	Status     Status
	WorkStatus WorkStatus
	AssigneeID uuid.UUID // uuid.Nil when unassigned
	DueDate    time.Time
}

// Caller identifies the acting user.
type Caller struct {
	ID   uuid.UUID
	Role Role
}

// TaskState is the per-task input to the completion gate.
type TaskState struct {
	IsCompleted bool
}

// Incomplete counts tasks still open.
func Incomplete(tasks []TaskState) int {
	n := 0
	for _, t := range tasks {
		if !t.IsCompleted {
			n++
		}
	}
	return n
}

// TargetKind says which endpoint a Decision's target belongs to.
type TargetKind string

const (
	TargetNone       TargetKind = ""
	TargetConfirm    TargetKind = "confirm"
	TargetWorkStatus TargetKind = "work_status"
)

// Decision is the computed transition button: label, target, enablement and
// optional confirmation prose.
type Decision struct {
	Label          string     `json:"label"`
	TargetKind     TargetKind `json:"target_kind"`
	Target         string     `json:"target,omitempty"`
	Disabled       bool       `json:"disabled"`
	DisabledReason string     `json:"disabled_reason,omitempty"`
	Confirm        string     `json:"confirm,omitempty"`
}

// CanConfirm decides the scheduled -> confirmed guard. Admins, managers and
// dispatchers may always confirm; a field agent only when they are the assignee
// and the due date is within ConfirmWindow or already past.
func CanConfirm(o Order, caller Caller, now time.Time) (bool, string) {
	switch caller.Role {
	case RoleAdmin, RoleManager, RoleDispatcher:
		return true, ""
	case RoleFieldAgent:
		if o.AssigneeID == uuid.Nil || caller.ID != o.AssigneeID {
			return false, ReasonNotAssignee
		}
		if o.DueDate.Sub(now) > ConfirmWindow {
			return false, ReasonOutsideWindow
		}
		return true, ""
	default:
		return false, fmt.Sprintf("role %q may not confirm work orders", caller.Role)
	}
}

// CanUpdateStatus decides who may drive the visit sequence: staff roles always,
// a field agent only on their own assignment.
func CanUpdateStatus(o Order, caller Caller) (bool, string) {
	switch caller.Role {
	case RoleAdmin, RoleManager, RoleDispatcher:
		return true, ""
	case RoleFieldAgent:
		if o.AssigneeID == uuid.Nil || caller.ID != o.AssigneeID {
			return false, ReasonNotAssignee
		}
		return true, ""
	default:
		return false, fmt.Sprintf("role %q may not update work status", caller.Role)
	}
}

// Decide computes the transition button for the caller. It is a pure function
// of its inputs: calling it twice with the same arguments yields the same
// Decision.
func Decide(o Order, tasks []TaskState, caller Caller, now time.Time) Decision {
	if o.Status == StatusCancelled {
		return Decision{Disabled: true, DisabledReason: ReasonCancelled}
	}

	if o.Status == StatusScheduled {
		d := Decision{
			Label:      LabelConfirm,
			TargetKind: TargetConfirm,
			Target:     string(StatusConfirmed),
		}
		if ok, reason := CanConfirm(o, caller, now); !ok {
			d.Disabled = true
			d.DisabledReason = reason
		}
		return d
	}

	var d Decision
	switch o.WorkStatus {
	case WorkNotStarted:
		d = Decision{Label: LabelStartRoute, TargetKind: TargetWorkStatus, Target: string(WorkInRoute)}
	case WorkInRoute:
		d = Decision{Label: LabelCheckIn, TargetKind: TargetWorkStatus, Target: string(WorkCheckedIn)}
	case WorkCheckedIn:
		d = Decision{Label: LabelCheckOut, TargetKind: TargetWorkStatus, Target: string(WorkCheckedOut)}
	case WorkCheckedOut:
		d = Decision{Label: LabelMarkComplete, TargetKind: TargetWorkStatus, Target: string(WorkCompleted)}
		if n := Incomplete(tasks); n > 0 {
			d.Label = LabelCompleteTasksFirst
			d.Disabled = true
			d.DisabledReason = IncompleteReason(n)
		} else {
			d.Confirm = ConfirmCompletePrompt
		}
	case WorkCompleted:
		d = Decision{
			Label:      LabelMarkIncomplete,
			TargetKind: TargetWorkStatus,
			Target:     string(WorkCheckedOut),
			Confirm:    ConfirmReopenPrompt,
		}
	default:
		return Decision{Disabled: true, DisabledReason: fmt.Sprintf("unknown work status: %s", o.WorkStatus)}
	}

	if ok, reason := CanUpdateStatus(o, caller); !ok {
		d.Disabled = true
		d.DisabledReason = reason
		d.Confirm = ""
	}

	return d
}
