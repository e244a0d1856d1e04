package domain

import "time"

// Task is one per-user record. OwnerID is fixed at creation and is the
// sole basis for access decisions.
type Task struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	DueDate     time.Time
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Decision is the outcome of an ownership check.
type Decision int

const (
	DecisionAllowed Decision = iota
	DecisionForbidden
	DecisionNotFound
)

// AuthorizeOwner decides whether subject may act on the task. A missing
// record is NotFound, a record owned by someone else is Forbidden; the
// check never hides the record's existence behind a filter. List queries
// take the opposite policy and filter by owner in the store instead.
func AuthorizeOwner(subject string, task *Task) Decision {
	if task == nil {
		return DecisionNotFound
	}
	if subject == "" || task.OwnerID != subject {
		return DecisionForbidden
	}
	return DecisionAllowed
}
