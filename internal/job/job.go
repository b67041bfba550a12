// internal/job/job.go
//
// Domain model for shop-floor job cards. Job cards are created by the
// office-side card printer; this system only reads them and moves them
// through the status lifecycle.

package job

import "time"

// Status is the lifecycle state stamped on a job card.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusPaused     Status = "Paused"
	StatusAwaitingQC Status = "Awaiting QC"
)

// Record is one job card as stored in the job store.
//
// ID is the store's document identifier; JobID is the business key printed
// into the QR code. The two are distinct: scans resolve by JobID, mutations
// address the document by ID.
type Record struct {
	ID           string
	JobID        string
	PartName     string
	Status       Status
	EmployeeID   string
	EmployeeName string
	DepartmentID string
	StartedAt    *time.Time
	PausedAt     *time.Time
	CompletedAt  *time.Time

	// TotalPausedMS accumulates completed pause intervals in milliseconds.
	// It is only ever incremented, never recomputed from timestamps.
	TotalPausedMS int64
}

// Assigned reports whether the card has an employee on it.
func (r Record) Assigned() bool {
	return r.EmployeeID != ""
}

// Department is static reference data scoping employee selection.
type Department struct {
	ID   string
	Name string
}

// Employee is static reference data for assignment.
type Employee struct {
	ID           string
	Name         string
	DepartmentID string
}

// UpdateSet is the partial update derived for one confirmed status
// transition. Fields not named here must be left untouched by the store.
// Timestamps flagged here are assigned server-side, not from the flags'
// derivation clock.
type UpdateSet struct {
	Status         Status
	SetStartedAt   bool
	SetPausedAt    bool
	ClearPausedAt  bool
	SetCompletedAt bool

	// PauseIncrementMS is added atomically to TotalPausedMS. Zero means
	// no increment clause is issued.
	PauseIncrementMS int64
}

// DeriveUpdate computes the field set for moving rec to target at time now.
//
// The rules, in order:
//   - entering In Progress for the first time stamps StartedAt;
//     a StartedAt already on the card is never overwritten
//   - resuming from Paused folds the elapsed pause into TotalPausedMS and
//     clears PausedAt so the same pause cannot be counted twice
//   - entering Paused stamps PausedAt
//   - entering Awaiting QC stamps CompletedAt
//   - the status itself always changes
func DeriveUpdate(rec Record, target Status, now time.Time) UpdateSet {
	u := UpdateSet{Status: target}
	switch target {
	case StatusInProgress:
		if rec.StartedAt == nil {
			u.SetStartedAt = true
		}
		if rec.Status == StatusPaused && rec.PausedAt != nil {
			elapsed := now.Sub(*rec.PausedAt)
			if elapsed < 0 {
				elapsed = 0
			}
			u.PauseIncrementMS = elapsed.Milliseconds()
			u.ClearPausedAt = true
		}
	case StatusPaused:
		u.SetPausedAt = true
	case StatusAwaitingQC:
		u.SetCompletedAt = true
	}
	return u
}
