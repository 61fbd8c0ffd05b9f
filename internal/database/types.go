package database

import (
	"time"
)

// Batch is an intake year or cohort in the roster.
type Batch struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Department is an academic department in the roster.
type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Student is a roster entry belonging to one batch and one department.
type Student struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	BatchID      int64  `json:"batch_id"`
	DepartmentID int64  `json:"department_id"`
}

// StoredAttendance is an attendance record mirrored into PostgreSQL.
// Batch, Department and Student hold identity tokens as written to the ledger.
type StoredAttendance struct {
	ID         int64
	Batch      string
	Department string
	Student    string
	MarkedAt   time.Time
	CreatedAt  time.Time
}

// StoredTrainingRun is the persisted outcome of one training job.
type StoredTrainingRun struct {
	JobID       string     `json:"job_id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Identities  int        `json:"identities"`
	Samples     int        `json:"samples"`
	Error       string     `json:"error,omitempty"`
}
