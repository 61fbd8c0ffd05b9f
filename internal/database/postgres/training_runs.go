package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/database"
)

// TrainingRunRepository keeps the history of training jobs.
type TrainingRunRepository struct {
	pool *Pool
}

// NewTrainingRunRepository creates a new training run repository.
func NewTrainingRunRepository(pool *Pool) *TrainingRunRepository {
	return &TrainingRunRepository{pool: pool}
}

// SaveTrainingRun inserts a run or updates the existing row with the same job
// ID. A run that already reached a terminal status is not updated again.
func (r *TrainingRunRepository) SaveTrainingRun(ctx context.Context, run database.StoredTrainingRun) error {
	var completed sql.NullTime
	if run.CompletedAt != nil {
		completed = sql.NullTime{Time: *run.CompletedAt, Valid: true}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO training_runs (job_id, status, started_at, completed_at, identities, samples, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			identities = EXCLUDED.identities,
			samples = EXCLUDED.samples,
			error = EXCLUDED.error
		WHERE training_runs.status = 'running'
	`, run.JobID, run.Status, run.StartedAt, completed, run.Identities, run.Samples, run.Error)
	if err != nil {
		return fmt.Errorf("save training run %s: %w", run.JobID, err)
	}
	return nil
}

// ListTrainingRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (r *TrainingRunRepository) ListTrainingRuns(ctx context.Context, limit int) ([]database.StoredTrainingRun, error) {
	query := `
		SELECT job_id, status, started_at, completed_at, identities, samples, error
		FROM training_runs
		ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list training runs: %w", err)
	}
	defer rows.Close()

	var result []database.StoredTrainingRun
	for rows.Next() {
		var run database.StoredTrainingRun
		var completed sql.NullTime
		if err := rows.Scan(&run.JobID, &run.Status, &run.StartedAt, &completed,
			&run.Identities, &run.Samples, &run.Error); err != nil {
			return nil, fmt.Errorf("scan training run: %w", err)
		}
		if completed.Valid {
			t := completed.Time
			run.CompletedAt = &t
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training runs: %w", err)
	}
	return result, nil
}

var _ database.TrainingRunWriter = (*TrainingRunRepository)(nil)
