package runs

import (
	"context"
	"database/sql"
	"time"

	"github.com/cutroom/cutroom-agent/internal/qc"
)

type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	InsertIssues(ctx context.Context, runID string, issues []qc.Issue) error
	ListIssues(ctx context.Context, runID string) ([]qc.Issue, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, status, project, timeline, frame_rate,
			errors, warnings, infos, placed, skipped, unmatched, failed,
			report, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Kind, run.Status, run.Project, run.Timeline, run.FrameRate,
		run.Errors, run.Warnings, run.Infos, run.Placed, run.Skipped, run.Unmatched, run.Failed,
		run.Report, run.Error,
		run.CreatedAt.Format(time.RFC3339), run.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) UpdateRun(ctx context.Context, run *Run) error {
	run.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, project = ?, timeline = ?, frame_rate = ?,
			errors = ?, warnings = ?, infos = ?, placed = ?, skipped = ?,
			unmatched = ?, failed = ?, report = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, run.Status, run.Project, run.Timeline, run.FrameRate,
		run.Errors, run.Warnings, run.Infos, run.Placed, run.Skipped,
		run.Unmatched, run.Failed, run.Report, run.Error,
		run.UpdatedAt.Format(time.RFC3339), run.ID)
	return err
}

func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, status, project, timeline, frame_rate,
			errors, warnings, infos, placed, skipped, unmatched, failed,
			report, error, created_at, updated_at
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, status, project, timeline, frame_rate,
			errors, warnings, infos, placed, skipped, unmatched, failed,
			report, error, created_at, updated_at
		FROM runs ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRunRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row *sql.Row) (*Run, error) {
	var run Run
	var createdAt, updatedAt string
	err := row.Scan(&run.ID, &run.Kind, &run.Status, &run.Project, &run.Timeline, &run.FrameRate,
		&run.Errors, &run.Warnings, &run.Infos, &run.Placed, &run.Skipped, &run.Unmatched, &run.Failed,
		&run.Report, &run.Error, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	run.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &run, nil
}

func scanRunRows(rows *sql.Rows) (*Run, error) {
	var run Run
	var createdAt, updatedAt string
	err := rows.Scan(&run.ID, &run.Kind, &run.Status, &run.Project, &run.Timeline, &run.FrameRate,
		&run.Errors, &run.Warnings, &run.Infos, &run.Placed, &run.Skipped, &run.Unmatched, &run.Failed,
		&run.Report, &run.Error, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	run.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &run, nil
}

func (r *SQLiteRepository) InsertIssues(ctx context.Context, runID string, issues []qc.Issue) error {
	for _, is := range issues {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO issues (run_id, type, severity, start_frame, end_frame, duration, track, clip, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, string(is.Type), string(is.Severity), is.Start, is.End, is.Duration, is.Track, is.Clip, is.Message)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) ListIssues(ctx context.Context, runID string) ([]qc.Issue, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT type, severity, start_frame, end_frame, duration, track, clip, message
		FROM issues WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []qc.Issue
	for rows.Next() {
		var is qc.Issue
		var typ, sev string
		if err := rows.Scan(&typ, &sev, &is.Start, &is.End, &is.Duration, &is.Track, &is.Clip, &is.Message); err != nil {
			return nil, err
		}
		is.Type = qc.Type(typ)
		is.Severity = qc.Severity(sev)
		issues = append(issues, is)
	}
	return issues, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
