package database

import (
	"context"
	"time"
)

// RosterReader provides read-only access to batches, departments and students
type RosterReader interface {
	// ListBatches returns all batches ordered by name
	ListBatches(ctx context.Context) ([]Batch, error)
	// ListDepartments returns all departments ordered by name
	ListDepartments(ctx context.Context) ([]Department, error)
	// ListStudents returns the students of a batch and department ordered by name
	ListStudents(ctx context.Context, batchID, departmentID int64) ([]Student, error)
	// GetBatch retrieves a batch by ID, returns nil if not found
	GetBatch(ctx context.Context, id int64) (*Batch, error)
	// GetDepartment retrieves a department by ID, returns nil if not found
	GetDepartment(ctx context.Context, id int64) (*Department, error)
}

// AttendanceWriter mirrors committed attendance records
type AttendanceWriter interface {
	// SaveAttendance stores a record; a record already stored for the same
	// identity and day is left untouched
	SaveAttendance(ctx context.Context, rec StoredAttendance) error
	// ListAttendance returns records marked in [from, to) ordered by time
	ListAttendance(ctx context.Context, from, to time.Time) ([]StoredAttendance, error)
	// CountAttendance returns the total number of mirrored records
	CountAttendance(ctx context.Context) (int, error)
}

// TrainingRunWriter keeps the history of training jobs
type TrainingRunWriter interface {
	// SaveTrainingRun inserts or updates a run by job ID; a run in a
	// terminal status is never overwritten
	SaveTrainingRun(ctx context.Context, run StoredTrainingRun) error
	// ListTrainingRuns returns the most recent runs first
	ListTrainingRuns(ctx context.Context, limit int) ([]StoredTrainingRun, error)
}
