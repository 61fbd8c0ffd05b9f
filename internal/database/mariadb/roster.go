package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/database"
)

// RosterRepository provides roster lookups backed by MariaDB.
type RosterRepository struct {
	pool *Pool
}

// NewRosterRepository creates a new roster repository.
func NewRosterRepository(pool *Pool) *RosterRepository {
	return &RosterRepository{pool: pool}
}

// ListBatches returns all batches ordered by name.
func (r *RosterRepository) ListBatches(ctx context.Context) ([]database.Batch, error) {
	rows, err := r.pool.db.QueryContext(ctx, `SELECT id, name FROM batches ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var result []database.Batch
	for rows.Next() {
		var b database.Batch
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return result, nil
}

// ListDepartments returns all departments ordered by name.
func (r *RosterRepository) ListDepartments(ctx context.Context) ([]database.Department, error) {
	rows, err := r.pool.db.QueryContext(ctx, `SELECT id, name FROM departments ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query departments: %w", err)
	}
	defer rows.Close()

	var result []database.Department
	for rows.Next() {
		var d database.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate departments: %w", err)
	}
	return result, nil
}

// ListStudents returns the students enrolled in a batch and department.
func (r *RosterRepository) ListStudents(ctx context.Context, batchID, departmentID int64) ([]database.Student, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, name FROM students
		WHERE batch_id = ? AND department_id = ?
		ORDER BY name ASC
	`, batchID, departmentID)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var result []database.Student
	for rows.Next() {
		s := database.Student{BatchID: batchID, DepartmentID: departmentID}
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return result, nil
}

// GetBatch retrieves a batch by ID, returns nil if not found.
func (r *RosterRepository) GetBatch(ctx context.Context, id int64) (*database.Batch, error) {
	b := database.Batch{ID: id}
	err := r.pool.db.QueryRowContext(ctx, `SELECT name FROM batches WHERE id = ?`, id).Scan(&b.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get batch %d: %w", id, err)
	}
	return &b, nil
}

// GetDepartment retrieves a department by ID, returns nil if not found.
func (r *RosterRepository) GetDepartment(ctx context.Context, id int64) (*database.Department, error) {
	d := database.Department{ID: id}
	err := r.pool.db.QueryRowContext(ctx, `SELECT name FROM departments WHERE id = ?`, id).Scan(&d.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get department %d: %w", id, err)
	}
	return &d, nil
}

var _ database.RosterReader = (*RosterRepository)(nil)
