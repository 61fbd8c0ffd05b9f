// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
)

// MockRosterReader is a mock implementation of database.RosterReader
type MockRosterReader struct {
	mu          sync.RWMutex
	batches     map[int64]database.Batch
	departments map[int64]database.Department
	students    []database.Student

	// Error injection
	ListBatchesError     error
	ListDepartmentsError error
	ListStudentsError    error
	GetError             error
}

// NewMockRosterReader creates a new mock roster reader
func NewMockRosterReader() *MockRosterReader {
	return &MockRosterReader{
		batches:     make(map[int64]database.Batch),
		departments: make(map[int64]database.Department),
	}
}

// AddBatch adds a batch to the mock roster
func (m *MockRosterReader) AddBatch(b database.Batch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[b.ID] = b
}

// AddDepartment adds a department to the mock roster
func (m *MockRosterReader) AddDepartment(d database.Department) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.departments[d.ID] = d
}

// AddStudent adds a student to the mock roster
func (m *MockRosterReader) AddStudent(s database.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students = append(m.students, s)
}

// ListBatches returns all batches ordered by name
func (m *MockRosterReader) ListBatches(ctx context.Context) ([]database.Batch, error) {
	if m.ListBatchesError != nil {
		return nil, m.ListBatchesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.Batch, 0, len(m.batches))
	for _, b := range m.batches {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ListDepartments returns all departments ordered by name
func (m *MockRosterReader) ListDepartments(ctx context.Context) ([]database.Department, error) {
	if m.ListDepartmentsError != nil {
		return nil, m.ListDepartmentsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.Department, 0, len(m.departments))
	for _, d := range m.departments {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ListStudents returns the students of a batch and department ordered by name
func (m *MockRosterReader) ListStudents(ctx context.Context, batchID, departmentID int64) ([]database.Student, error) {
	if m.ListStudentsError != nil {
		return nil, m.ListStudentsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Student
	for _, s := range m.students {
		if s.BatchID == batchID && s.DepartmentID == departmentID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// GetBatch retrieves a batch by ID
func (m *MockRosterReader) GetBatch(ctx context.Context, id int64) (*database.Batch, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// GetDepartment retrieves a department by ID
func (m *MockRosterReader) GetDepartment(ctx context.Context, id int64) (*database.Department, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.departments[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// MockAttendanceWriter is a mock implementation of database.AttendanceWriter
type MockAttendanceWriter struct {
	mu      sync.RWMutex
	records []database.StoredAttendance

	// Error injection
	SaveError  error
	ListError  error
	CountError error
}

// NewMockAttendanceWriter creates a new mock attendance writer
func NewMockAttendanceWriter() *MockAttendanceWriter {
	return &MockAttendanceWriter{}
}

// SaveAttendance stores a record unless one exists for the same identity and day
func (m *MockAttendanceWriter) SaveAttendance(ctx context.Context, rec database.StoredAttendance) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Batch == rec.Batch && r.Department == rec.Department && r.Student == rec.Student &&
			sameDay(r.MarkedAt, rec.MarkedAt) {
			return nil
		}
	}
	rec.ID = int64(len(m.records) + 1)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.records = append(m.records, rec)
	return nil
}

// ListAttendance returns records marked in [from, to)
func (m *MockAttendanceWriter) ListAttendance(ctx context.Context, from, to time.Time) ([]database.StoredAttendance, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.StoredAttendance
	for _, r := range m.records {
		if !r.MarkedAt.Before(from) && r.MarkedAt.Before(to) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MarkedAt.Before(result[j].MarkedAt) })
	return result, nil
}

// CountAttendance returns the number of stored records
func (m *MockAttendanceWriter) CountAttendance(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// MockTrainingRunWriter is a mock implementation of database.TrainingRunWriter
type MockTrainingRunWriter struct {
	mu   sync.RWMutex
	runs []database.StoredTrainingRun

	// Error injection
	SaveError error
	ListError error
}

// NewMockTrainingRunWriter creates a new mock training run writer
func NewMockTrainingRunWriter() *MockTrainingRunWriter {
	return &MockTrainingRunWriter{}
}

// SaveTrainingRun inserts or updates a run by job ID; terminal runs are kept
func (m *MockTrainingRunWriter) SaveTrainingRun(ctx context.Context, run database.StoredTrainingRun) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.runs {
		if r.JobID == run.JobID {
			if r.Status == "running" {
				m.runs[i] = run
			}
			return nil
		}
	}
	m.runs = append(m.runs, run)
	return nil
}

// ListTrainingRuns returns the most recent runs first
func (m *MockTrainingRunWriter) ListTrainingRuns(ctx context.Context, limit int) ([]database.StoredTrainingRun, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.StoredTrainingRun, len(m.runs))
	copy(result, m.runs)
	sort.SliceStable(result, func(i, j int) bool { return result[i].StartedAt.After(result[j].StartedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
