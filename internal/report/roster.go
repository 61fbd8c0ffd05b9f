package report

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/identity"
)

// ForRoster loads the batch, department and students from roster and builds
// the report over records. Unknown batch or department ids yield "Unknown" names.
func ForRoster(ctx context.Context, roster database.RosterReader, records []attendance.Record, batchID, deptID int64) (*Report, error) {
	req := Request{
		Batch:      identity.Part{ID: batchID},
		Department: identity.Part{ID: deptID},
	}

	batch, err := roster.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("loading batch: %w", err)
	}
	if batch != nil {
		req.Batch.Name = batch.Name
	}
	dept, err := roster.GetDepartment(ctx, deptID)
	if err != nil {
		return nil, fmt.Errorf("loading department: %w", err)
	}
	if dept != nil {
		req.Department.Name = dept.Name
	}

	students, err := roster.ListStudents(ctx, batchID, deptID)
	if err != nil {
		return nil, fmt.Errorf("loading students: %w", err)
	}
	for _, s := range students {
		req.Students = append(req.Students, Student{ID: s.ID, Name: s.Name})
	}
	return Build(req, records), nil
}
