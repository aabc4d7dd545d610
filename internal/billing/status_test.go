package billing

import (
	"testing"
	"time"
)

// legal edges per the lifecycle table; revise edges (non-terminal -> DRAFT)
// are listed explicitly.
var legalEdges = map[Status][]Status{
	StatusDraft:   {StatusSent, StatusCancelled, StatusDraft},
	StatusSent:    {StatusViewed, StatusPaid, StatusOverdue, StatusCancelled, StatusDraft},
	StatusViewed:  {StatusPaid, StatusOverdue, StatusCancelled, StatusDraft},
	StatusOverdue: {StatusPaid, StatusCancelled, StatusDraft},
	StatusPaid:    {StatusRefunded, StatusDraft},
}

func TestCanTransitionMatrix(t *testing.T) {
	allowed := func(from, to Status) bool {
		for _, s := range legalEdges[from] {
			if s == to {
				return true
			}
		}
		return false
	}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			want := allowed(from, to)
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, from := range []Status{StatusCancelled, StatusRefunded} {
		if !from.Terminal() {
			t.Errorf("%s should be terminal", from)
		}
		for _, to := range AllStatuses {
			if CanTransition(from, to) {
				t.Errorf("terminal %s must not transition to %s", from, to)
			}
		}
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -2)
	future := now.AddDate(0, 0, 1)

	cases := []struct {
		name    string
		status  Status
		dueDate time.Time
		want    bool
	}{
		{"sent past due", StatusSent, past, true},
		{"viewed past due", StatusViewed, past, true},
		{"sent due tomorrow", StatusSent, future, false},
		{"sent due exactly now", StatusSent, now, false},
		{"draft past due", StatusDraft, past, false},
		{"paid past due", StatusPaid, past, false},
		{"overdue already", StatusOverdue, past, false},
		{"cancelled past due", StatusCancelled, past, false},
	}
	for _, tc := range cases {
		if got := IsOverdue(tc.status, tc.dueDate, now); got != tc.want {
			t.Errorf("%s: IsOverdue = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range AllStatuses {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Status("PENDING").Valid() {
		t.Error("PENDING should not be valid")
	}
}
