package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/database/mock"
	"github.com/kozaktomas/face-attend/internal/identity"
)

func rec(batch, dept, student string, day, hour int) attendance.Record {
	return attendance.Record{
		Identity: identity.FromTokens(batch, dept, student),
		Time:     time.Date(2024, 3, day, hour, 0, 0, 0, time.Local),
	}
}

func TestBuild(t *testing.T) {
	records := []attendance.Record{
		rec("2024-1", "CS-2", "Carol-10", 4, 9),
		rec("2024-1", "CS-2", "Dave-11", 4, 9),
		rec("2024-1", "CS-2", "Carol-10", 5, 9),
		rec("2024-1", "CS-2", "Carol-10", 5, 15), // same day again
		rec("2024", "CS", "Carol", 6, 9),         // legacy tokens without ids
		rec("2023-9", "CS-2", "Dave-11", 7, 9),   // other batch
	}
	req := Request{
		Batch:      identity.Part{Name: "2024", ID: 1},
		Department: identity.Part{Name: "CS", ID: 2},
		Students:   []Student{{ID: 10, Name: "Carol"}, {ID: 11, Name: "Dave"}, {ID: 12, Name: "Erin"}},
	}

	r := Build(req, records)

	if r.TotalWorkingDays != 3 {
		t.Fatalf("expected 3 working days, got %d", r.TotalWorkingDays)
	}
	if r.Batch != "2024" || r.Department != "CS" {
		t.Errorf("unexpected names %q %q", r.Batch, r.Department)
	}

	tests := []struct {
		name   string
		count  int
		pct    float64
		absent int
		absPct float64
	}{
		{"Carol", 3, 100, 0, 0},
		{"Dave", 1, 33.33, 2, 66.67},
		{"Erin", 0, 0, 3, 100},
	}
	if len(r.Rows) != len(tests) {
		t.Fatalf("expected %d rows, got %d", len(tests), len(r.Rows))
	}
	for i, tt := range tests {
		row := r.Rows[i]
		if row.Name != tt.name {
			t.Errorf("row %d: expected %s, got %s", i, tt.name, row.Name)
		}
		if row.AttendanceCount != tt.count || row.AttendancePercentage != tt.pct {
			t.Errorf("%s: expected %d (%.2f%%), got %d (%.2f%%)",
				tt.name, tt.count, tt.pct, row.AttendanceCount, row.AttendancePercentage)
		}
		if row.AbsentCount != tt.absent || row.AbsentPercentage != tt.absPct {
			t.Errorf("%s: expected %d absent (%.2f%%), got %d (%.2f%%)",
				tt.name, tt.absent, tt.absPct, row.AbsentCount, row.AbsentPercentage)
		}
	}
	if r.OverallPercentage != 44.44 {
		t.Errorf("expected overall 44.44, got %.2f", r.OverallPercentage)
	}
}

func TestBuildNoRecords(t *testing.T) {
	r := Build(Request{Students: []Student{{ID: 1, Name: "Carol"}}}, nil)

	if r.TotalWorkingDays != 1 {
		t.Errorf("expected working days to be at least 1, got %d", r.TotalWorkingDays)
	}
	if r.Batch != "Unknown" || r.Department != "Unknown" {
		t.Errorf("expected Unknown names, got %q %q", r.Batch, r.Department)
	}
	if r.Rows[0].AbsentCount != 1 || r.Rows[0].AbsentPercentage != 100 {
		t.Errorf("unexpected row: %+v", r.Rows[0])
	}
}

func TestWriteCSV(t *testing.T) {
	r := &Report{Rows: []Row{
		{StudentID: 10, Name: "Carol, Jr.", AttendanceCount: 2, AttendancePercentage: 66.67, AbsentCount: 1, AbsentPercentage: 33.33},
	}}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, r); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "Student ID,Student Name") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != `10,"Carol, Jr.",2,66.67,1,33.33` {
		t.Errorf("unexpected row %q", lines[1])
	}
}

func TestForRoster(t *testing.T) {
	roster := mock.NewMockRosterReader()
	roster.AddBatch(database.Batch{ID: 1, Name: "2024"})
	roster.AddDepartment(database.Department{ID: 2, Name: "CS"})
	roster.AddStudent(database.Student{ID: 11, Name: "Dave", BatchID: 1, DepartmentID: 2})
	roster.AddStudent(database.Student{ID: 10, Name: "Carol", BatchID: 1, DepartmentID: 2})
	roster.AddStudent(database.Student{ID: 12, Name: "Erin", BatchID: 9, DepartmentID: 2})

	records := []attendance.Record{rec("2024-1", "CS-2", "Carol-10", 4, 9)}

	r, err := ForRoster(context.Background(), roster, records, 1, 2)
	if err != nil {
		t.Fatalf("ForRoster failed: %v", err)
	}
	if r.Batch != "2024" || r.Department != "CS" {
		t.Errorf("unexpected names %q %q", r.Batch, r.Department)
	}
	if len(r.Rows) != 2 || r.Rows[0].Name != "Carol" || r.Rows[1].Name != "Dave" {
		t.Fatalf("unexpected rows: %+v", r.Rows)
	}
	if r.Rows[0].AttendanceCount != 1 || r.Rows[1].AttendanceCount != 0 {
		t.Errorf("unexpected counts: %+v", r.Rows)
	}
}

func TestForRosterUnknownIDs(t *testing.T) {
	r, err := ForRoster(context.Background(), mock.NewMockRosterReader(), nil, 7, 8)
	if err != nil {
		t.Fatalf("ForRoster failed: %v", err)
	}
	if r.Batch != "Unknown" || r.Department != "Unknown" || len(r.Rows) != 0 {
		t.Errorf("unexpected report: %+v", r)
	}
}

func TestForRosterError(t *testing.T) {
	roster := mock.NewMockRosterReader()
	roster.GetError = errors.New("connection refused")

	if _, err := ForRoster(context.Background(), roster, nil, 1, 2); err == nil {
		t.Error("expected error")
	}
}
