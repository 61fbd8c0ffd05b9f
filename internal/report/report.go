// Package report aggregates ledger records into per-student attendance
// figures for one batch and department.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/identity"
)

// Student is a roster entry the report is computed for.
type Student struct {
	ID   int64
	Name string
}

// Request selects the batch, department and roster of a report.
type Request struct {
	Batch      identity.Part
	Department identity.Part
	Students   []Student
}

// Row holds the figures of one student.
type Row struct {
	StudentID            int64   `json:"student_id"`
	Name                 string  `json:"student_name"`
	AttendanceCount      int     `json:"attendance_count"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	AbsentCount          int     `json:"absent_count"`
	AbsentPercentage     float64 `json:"absent_percentage"`
}

// Report is the result of Build.
type Report struct {
	Batch             string  `json:"batch_name"`
	Department        string  `json:"department_name"`
	TotalWorkingDays  int     `json:"total_working_days"`
	OverallPercentage float64 `json:"overall_attendance_percentage"`
	Rows              []Row   `json:"students"`
}

// Build computes the report. Working days are the distinct dates with at least
// one record for the batch and department, never fewer than one. A student is
// present on a day when any record on that day carries their token.
func Build(req Request, records []attendance.Record) *Report {
	batchTokens := tokens(req.Batch)
	deptTokens := tokens(req.Department)

	days := make(map[string]struct{})
	present := make(map[string]map[string]struct{})
	for _, rec := range records {
		if _, ok := batchTokens[rec.Identity.Batch]; !ok {
			continue
		}
		if _, ok := deptTokens[rec.Identity.Department]; !ok {
			continue
		}
		day := rec.Time.Format("2006-01-02")
		days[day] = struct{}{}
		if present[rec.Identity.Student] == nil {
			present[rec.Identity.Student] = make(map[string]struct{})
		}
		present[rec.Identity.Student][day] = struct{}{}
	}

	workingDays := max(len(days), 1)

	r := &Report{
		Batch:            nameOrUnknown(req.Batch.Name),
		Department:       nameOrUnknown(req.Department.Name),
		TotalWorkingDays: workingDays,
		Rows:             make([]Row, 0, len(req.Students)),
	}

	totalPresent := 0
	for _, s := range req.Students {
		attended := make(map[string]struct{})
		for token := range tokens(identity.Part{Name: s.Name, ID: s.ID}) {
			for day := range present[token] {
				attended[day] = struct{}{}
			}
		}
		count := len(attended)
		totalPresent += count
		r.Rows = append(r.Rows, Row{
			StudentID:            s.ID,
			Name:                 s.Name,
			AttendanceCount:      count,
			AttendancePercentage: percent(count, workingDays),
			AbsentCount:          workingDays - count,
			AbsentPercentage:     percent(workingDays-count, workingDays),
		})
	}
	if len(req.Students) > 0 {
		r.OverallPercentage = percent(totalPresent, workingDays*len(req.Students))
	}
	return r
}

// WriteCSV writes the report as CSV with a header row.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	header := []string{
		"Student ID", "Student Name", "Attendance Count", "Attendance Percentage",
		"Absent Count", "Absent Percentage",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, row := range r.Rows {
		record := []string{
			strconv.FormatInt(row.StudentID, 10),
			row.Name,
			strconv.Itoa(row.AttendanceCount),
			strconv.FormatFloat(row.AttendancePercentage, 'f', 2, 64),
			strconv.Itoa(row.AbsentCount),
			strconv.FormatFloat(row.AbsentPercentage, 'f', 2, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// tokens returns the ledger tokens a part may have been recorded under: with
// its id suffix and, for records written before ids were known, without.
func tokens(p identity.Part) map[string]struct{} {
	set := map[string]struct{}{identity.Sanitize(p.Name): {}}
	set[p.Token()] = struct{}{}
	return set
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*10000) / 100
}

func nameOrUnknown(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}
