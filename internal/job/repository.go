package job

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no job card carries the scanned business key.
var ErrNotFound = errors.New("job: no card matches this id")

// ErrAmbiguous is returned when more than one card carries the scanned
// business key. The workflow never guesses between matches.
var ErrAmbiguous = errors.New("job: more than one card matches this id")

// Repository is the job store as seen by the workflow controller.
//
// FindByJobID resolves the scanned business key to exactly one card
// (ErrNotFound / ErrAmbiguous otherwise). ApplyUpdate and Assign address the
// card by its store document id and have partial-update semantics: fields
// outside the request are left untouched.
type Repository interface {
	FindByJobID(ctx context.Context, jobID string) (*Record, error)
	ApplyUpdate(ctx context.Context, id string, u UpdateSet) error
	Assign(ctx context.Context, id, employeeID, employeeName string) error
}

// DirectorySource supplies the reference collections the directory cache
// loads once at session start.
type DirectorySource interface {
	Departments(ctx context.Context) ([]Department, error)
	Employees(ctx context.Context) ([]Employee, error)
}
