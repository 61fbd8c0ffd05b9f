package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
)

// AttendanceRepository mirrors ledger records into PostgreSQL.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// SaveAttendance stores a record. The (identity, day) pair is unique, so a
// second record for the same day is ignored.
func (r *AttendanceRepository) SaveAttendance(ctx context.Context, rec database.StoredAttendance) error {
	marked := rec.MarkedAt.Truncate(time.Second)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO attendance_records (batch, department, student, marked_at, marked_on)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (batch, department, student, marked_on) DO NOTHING
	`, rec.Batch, rec.Department, rec.Student, wallClock(marked), marked.Format(time.DateOnly))
	if err != nil {
		return fmt.Errorf("save attendance %s/%s/%s: %w", rec.Batch, rec.Department, rec.Student, err)
	}
	return nil
}

// ListAttendance returns records marked in [from, to) ordered by time.
func (r *AttendanceRepository) ListAttendance(ctx context.Context, from, to time.Time) ([]database.StoredAttendance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, batch, department, student, marked_at, created_at
		FROM attendance_records
		WHERE marked_at >= $1 AND marked_at < $2
		ORDER BY marked_at, id
	`, wallClock(from), wallClock(to))
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var result []database.StoredAttendance
	for rows.Next() {
		var rec database.StoredAttendance
		var marked time.Time
		if err := rows.Scan(&rec.ID, &rec.Batch, &rec.Department, &rec.Student, &marked, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		rec.MarkedAt = localWallClock(marked)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return result, nil
}

// CountAttendance returns the number of mirrored records.
func (r *AttendanceRepository) CountAttendance(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attendance_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return n, nil
}

// marked_at is a TIMESTAMP without zone holding local wall-clock time, the
// same value the ledger records.
func wallClock(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func localWallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
}

var _ database.AttendanceWriter = (*AttendanceRepository)(nil)
