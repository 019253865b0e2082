package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"toolbox/internal/jobs/models"
	id "toolbox/pkg/domain"
	txcontext "toolbox/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresJobStore persists jobs with JSONB input and output snapshots.
type PostgresJobStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresJobStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const jobColumns = `id, user_id, tool, status, input, output, error, client_label, created_at, updated_at`

func (s *PostgresJobStore) Create(ctx context.Context, job *models.Job) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(job.ID),
		uuid.UUID(job.UserID),
		job.Tool,
		string(job.Status),
		nullableJSON(job.Input),
		nullableJSON(job.Output),
		job.Error,
		job.ClientLabel,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateStatus only touches pending jobs. When no row matches, the job is
// looked up to tell a missing job from an illegal transition.
func (s *PostgresJobStore) UpdateStatus(ctx context.Context, jobID id.JobID, status models.Status, output json.RawMessage, errMsg string, now time.Time) error {
	if !models.StatusPending.CanTransitionTo(status) {
		return ErrInvalidState
	}
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, output = $3, error = $4, updated_at = $5
		WHERE id = $1 AND status = $6`,
		uuid.UUID(jobID), string(status), nullableJSON(output), errMsg, now, string(models.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.FindByID(ctx, jobID); err != nil {
		return err
	}
	return ErrInvalidState
}

func (s *PostgresJobStore) FindByID(ctx context.Context, jobID id.JobID) (*models.Job, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, uuid.UUID(jobID))
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	return job, nil
}

func (s *PostgresJobStore) ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*models.Job, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		uuid.UUID(userID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs by user: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ListRecent returns the newest jobs across users. A non-empty statuses
// slice filters with = ANY, passing the set as one array parameter.
func (s *PostgresJobStore) ListRecent(ctx context.Context, limit int, statuses []models.Status) ([]*models.Job, error) {
	var (
		query strings.Builder
		args  = []any{limit}
	)
	query.WriteString(`SELECT ` + jobColumns + ` FROM jobs`)
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, st := range statuses {
			values[i] = string(st)
		}
		query.WriteString(` WHERE status = ANY($2::text[])`)
		args = append(args, pq.Array(values))
	}
	query.WriteString(` ORDER BY created_at DESC LIMIT $1`)

	rows, err := s.execer(ctx).QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		job           models.Job
		jobID, userID uuid.UUID
		status        string
		input, output []byte
	)
	if err := row.Scan(&jobID, &userID, &job.Tool, &status, &input, &output,
		&job.Error, &job.ClientLabel, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.ID = id.JobID(jobID)
	job.UserID = id.UserID(userID)
	job.Status = models.Status(status)
	if len(input) > 0 {
		job.Input = json.RawMessage(input)
	}
	if len(output) > 0 {
		job.Output = json.RawMessage(output)
	}
	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]*models.Job, error) {
	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// nullableJSON maps an empty payload to SQL NULL; JSONB rejects empty strings.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
