package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

type JobStatus string

const (
	JobQueued JobStatus = "queued"
	JobActive JobStatus = "active"
	JobFailed JobStatus = "failed"
)

// JobRecord is the durable row backing one proof-generation job. Completed
// jobs are deleted (auto-remove); failed jobs are retained for inspection.
type JobRecord struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	TraitType string         `db:"trait_type"`
	Status    JobStatus      `db:"status"`
	Attempts  int            `db:"attempts"`
	LastError sql.NullString `db:"last_error"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

type JobStore interface {
	Create(ctx context.Context, job *JobRecord) error
	MarkActive(ctx context.Context, id string, attempts int) error
	MarkQueued(ctx context.Context, id string, attempts int) error
	MarkFailed(ctx context.Context, id string, attempts int, errMsg string) error
	// Delete removes the row; used for completed jobs.
	Delete(ctx context.Context, id string) error
	// Get returns (nil, nil) when the job is unknown.
	Get(ctx context.Context, id string) (*JobRecord, error)
	FailedJobs(ctx context.Context) ([]*JobRecord, error)
}

var selectJobs = `SELECT j.* FROM proof_jobs j`

type postgresJobStore struct {
	db *sqlx.DB
}

func NewJobs(dbconn *sqlx.DB) JobStore {
	return &postgresJobStore{db: dbconn}
}

func (s *postgresJobStore) Create(ctx context.Context, job *JobRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO proof_jobs (id, user_id, trait_type, status, attempts, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())`,
		job.ID, job.UserID, job.TraitType, job.Status, job.Attempts)
	return err
}

func (s *postgresJobStore) MarkActive(ctx context.Context, id string, attempts int) error {
	return s.setStatus(ctx, id, JobActive, attempts, "")
}

func (s *postgresJobStore) MarkQueued(ctx context.Context, id string, attempts int) error {
	return s.setStatus(ctx, id, JobQueued, attempts, "")
}

func (s *postgresJobStore) MarkFailed(ctx context.Context, id string, attempts int, errMsg string) error {
	return s.setStatus(ctx, id, JobFailed, attempts, errMsg)
}

func (s *postgresJobStore) setStatus(ctx context.Context, id string, status JobStatus, attempts int, errMsg string) error {
	lastErr := sql.NullString{String: errMsg, Valid: errMsg != ""}
	_, err := s.db.ExecContext(ctx,
		`UPDATE proof_jobs SET status=$2, attempts=$3, last_error=$4, updated_at=now() WHERE id=$1`,
		id, status, attempts, lastErr)
	return err
}

func (s *postgresJobStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM proof_jobs WHERE id=$1`, id)
	return err
}

func (s *postgresJobStore) Get(ctx context.Context, id string) (*JobRecord, error) {
	var job JobRecord
	err := s.db.GetContext(ctx, &job, selectJobs+" WHERE j.id=$1;", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &job, err
}

func (s *postgresJobStore) FailedJobs(ctx context.Context) ([]*JobRecord, error) {
	jobs := []*JobRecord{}
	err := s.db.SelectContext(ctx, &jobs, selectJobs+" WHERE j.status=$1 ORDER BY j.updated_at DESC;", JobFailed)
	return jobs, err
}
