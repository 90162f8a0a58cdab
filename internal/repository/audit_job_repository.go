package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aidrelay/aidrelay-api/internal/models"
)

// AuditJobRepository persists audit export job metadata.
type AuditJobRepository struct {
	db *sqlx.DB
}

// NewAuditJobRepository constructs the repository.
func NewAuditJobRepository(db *sqlx.DB) *AuditJobRepository {
	return &AuditJobRepository{db: db}
}

// Create inserts a new export job row with generated defaults.
func (r *AuditJobRepository) Create(ctx context.Context, job *models.AuditExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_export_jobs (id, format, period_from, period_to, status, result_url, error_message, created_by, created_at, finished_at)
VALUES (:id, :format, :period_from, :period_to, :status, :result_url, :error_message, :created_by, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create audit export job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *AuditJobRepository) GetByID(ctx context.Context, id string) (*models.AuditExportJob, error) {
	const query = `SELECT id, format, period_from, period_to, status, result_url, error_message, created_by, created_at, finished_at
FROM audit_export_jobs WHERE id = $1`
	var job models.AuditExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get audit export job: %w", err)
	}
	return &job, nil
}

// UpdateAuditJobParams defines the mutable fields.
type UpdateAuditJobParams struct {
	Status       *models.ExportStatus
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *AuditJobRepository) Update(ctx context.Context, id string, params UpdateAuditJobParams) error {
	set := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	argPos := 1

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.ResultURL != nil {
		set = append(set, fmt.Sprintf("result_url = $%d", argPos))
		args = append(args, *params.ResultURL)
		argPos++
	}
	if params.ErrorMessage != nil {
		set = append(set, fmt.Sprintf("error_message = $%d", argPos))
		args = append(args, *params.ErrorMessage)
		argPos++
	}
	if params.FinishedAt != nil {
		set = append(set, fmt.Sprintf("finished_at = $%d", argPos))
		args = append(args, *params.FinishedAt)
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE audit_export_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update audit export job: %w", err)
	}
	return nil
}

// ListQueued fetches queued jobs (used for cold start recovery).
func (r *AuditJobRepository) ListQueued(ctx context.Context, limit int) ([]models.AuditExportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, format, period_from, period_to, status, result_url, error_message, created_by, created_at, finished_at
FROM audit_export_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	var jobs []models.AuditExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued audit export jobs: %w", err)
	}
	return jobs, nil
}

// ListFinishedBefore retrieves completed jobs prior to cutoff for cleanup.
func (r *AuditJobRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.AuditExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, format, period_from, period_to, status, result_url, error_message, created_by, created_at, finished_at
FROM audit_export_jobs WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2`
	var jobs []models.AuditExportJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished audit export jobs: %w", err)
	}
	return jobs, nil
}
