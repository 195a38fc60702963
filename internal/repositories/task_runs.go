package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/shared"
)

// TaskRunRepository records task executions for operator visibility.
type TaskRunRepository struct {
	db *sql.DB
}

// NewTaskRunRepository creates a new TaskRunRepository with the given database connection
func NewTaskRunRepository(db *sql.DB) *TaskRunRepository {
	return &TaskRunRepository{db: db}
}

// Create inserts run, generating its ID when empty.
func (r *TaskRunRepository) Create(ctx context.Context, run *models.TaskRun) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	if run.Task == "" || run.RunID == "" {
		return fmt.Errorf("%w: task run needs task and run id", shared.ErrInvalidInput)
	}

	var errorMessage any = run.ErrorMessage
	if run.ErrorMessage == "" {
		errorMessage = nil
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO task_runs (
			id, run_id, task, kind, playlist_id, tracks_written,
			status, error_message, started_at, finished_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.RunID,
		run.Task,
		string(run.Kind),
		run.PlaylistID,
		run.TracksWritten,
		string(run.Status),
		errorMessage,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert task run: %v", shared.ErrDatabase, err)
	}
	return nil
}

// List returns the most recent runs first, optionally restricted to one task. A non-positive limit returns everything.
func (r *TaskRunRepository) List(ctx context.Context, task string, limit int) ([]models.TaskRun, error) {
	query := `
		SELECT
			id, run_id, task, kind, playlist_id, tracks_written,
			status, error_message, started_at, finished_at
		FROM task_runs
	`
	args := []any{}

	if task != "" {
		query += " WHERE task = ?"
		args = append(args, task)
	}

	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query task runs: %v", shared.ErrDatabase, err)
	}
	defer rows.Close()

	var runs []models.TaskRun
	for rows.Next() {
		run, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrDatabase, err)
	}

	return runs, nil
}

// scanRow scans a row from [sql.Rows] into a [models.TaskRun]
func (r *TaskRunRepository) scanRow(rows *sql.Rows) (models.TaskRun, error) {
	var (
		run          models.TaskRun
		kind         string
		status       string
		errorMessage sql.NullString
	)

	err := rows.Scan(
		&run.ID, &run.RunID, &run.Task, &kind, &run.PlaylistID, &run.TracksWritten,
		&status, &errorMessage, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return models.TaskRun{}, fmt.Errorf("%w: failed to scan task run: %v", shared.ErrDatabase, err)
	}

	run.Kind = models.TaskKind(kind)
	run.Status = models.TaskStatus(status)
	if errorMessage.Valid {
		run.ErrorMessage = errorMessage.String
	}
	return run, nil
}
