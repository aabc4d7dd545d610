package billing

import "time"

// Status is the invoice lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSent      Status = "SENT"
	StatusViewed    Status = "VIEWED"
	StatusPaid      Status = "PAID"
	StatusOverdue   Status = "OVERDUE"
	StatusCancelled Status = "CANCELLED"
	StatusRefunded  Status = "REFUNDED"
)

// AllStatuses lists every valid status, for validation and filters.
var AllStatuses = []Status{
	StatusDraft, StatusSent, StatusViewed, StatusPaid,
	StatusOverdue, StatusCancelled, StatusRefunded,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition out of s is permitted.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// transitions is the legal edge set. Revise (any non-terminal -> DRAFT) is
// encoded here; the no-payment guard is enforced by Invoice.Transition.
var transitions = map[Status]map[Status]bool{
	StatusDraft: {
		StatusSent:      true,
		StatusCancelled: true,
		StatusDraft:     true,
	},
	StatusSent: {
		StatusViewed:    true,
		StatusPaid:      true,
		StatusOverdue:   true,
		StatusCancelled: true,
		StatusDraft:     true,
	},
	StatusViewed: {
		StatusPaid:      true,
		StatusOverdue:   true,
		StatusCancelled: true,
		StatusDraft:     true,
	},
	StatusOverdue: {
		StatusPaid:      true,
		StatusCancelled: true,
		StatusDraft:     true,
	},
	StatusPaid: {
		StatusRefunded: true,
		StatusDraft:    true, // rejected at runtime: payment already recorded
	},
}

// CanTransition reports whether the edge from -> to is in the legal table.
// It does not evaluate the revise payment guard.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// IsOverdue is the pure overdue decision: an invoice awaiting payment whose
// due date has elapsed at now. The surrounding system decides when to call
// this (on read or via a sweep); no background process is required.
func IsOverdue(status Status, dueDate, now time.Time) bool {
	if status != StatusSent && status != StatusViewed {
		return false
	}
	return now.After(dueDate)
}
