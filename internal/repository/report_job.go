package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/casinobroker/platform/internal/domain"
)

type reportJobRepo struct{}

// NewReportJobRepository returns a pgx-backed ReportJobRepository.
func NewReportJobRepository() ReportJobRepository { return &reportJobRepo{} }

func (r *reportJobRepo) FindByID(ctx context.Context, conn DBTX, id uuid.UUID) (*domain.ReportJob, error) {
	row := conn.QueryRow(ctx, `
		SELECT id, partner_id, report_kind, format, params, status, storage_path,
			file_size_bytes, error_message, created_at, completed_at
		FROM report_jobs WHERE id = $1`, id)
	return scanReportJob(row)
}

func (r *reportJobRepo) Insert(ctx context.Context, conn DBTX, j *domain.ReportJob) error {
	_, err := conn.Exec(ctx, `
		INSERT INTO report_jobs (id, partner_id, report_kind, format, params, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		j.ID, j.PartnerID, j.ReportKind, j.Format, j.Params, j.Status, j.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert report job: %w", err)
	}
	return nil
}

func (r *reportJobRepo) UpdateStatus(ctx context.Context, conn DBTX, id uuid.UUID, status domain.ReportJobStatus) error {
	_, err := conn.Exec(ctx, `UPDATE report_jobs SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update report job status: %w", err)
	}
	return nil
}

func (r *reportJobRepo) Complete(ctx context.Context, conn DBTX, id uuid.UUID, storagePath string, sizeBytes int64, at time.Time) error {
	_, err := conn.Exec(ctx, `
		UPDATE report_jobs SET status = 'completed', storage_path = $1, file_size_bytes = $2,
			completed_at = $3 WHERE id = $4`, storagePath, sizeBytes, at, id)
	if err != nil {
		return fmt.Errorf("complete report job: %w", err)
	}
	return nil
}

func (r *reportJobRepo) Fail(ctx context.Context, conn DBTX, id uuid.UUID, errMsg string) error {
	_, err := conn.Exec(ctx, `
		UPDATE report_jobs SET status = 'failed', error_message = $1 WHERE id = $2`, errMsg, id)
	if err != nil {
		return fmt.Errorf("fail report job: %w", err)
	}
	return nil
}

func (r *reportJobRepo) ListPending(ctx context.Context, conn DBTX, limit int) ([]domain.ReportJob, error) {
	rows, err := conn.Query(ctx, `
		SELECT id, partner_id, report_kind, format, params, status, storage_path,
			file_size_bytes, error_message, created_at, completed_at
		FROM report_jobs WHERE status = 'pending' ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending report jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.ReportJob
	for rows.Next() {
		j, err := scanReportJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (r *reportJobRepo) ListStaleProcessing(ctx context.Context, conn DBTX, cutoff time.Time, limit int) ([]domain.ReportJob, error) {
	rows, err := conn.Query(ctx, `
		SELECT id, partner_id, report_kind, format, params, status, storage_path,
			file_size_bytes, error_message, created_at, completed_at
		FROM report_jobs WHERE status = 'processing' AND created_at < $1 ORDER BY created_at ASC LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale report jobs: %w", err)
	}
	defer rows.Close()

	var out []domain.ReportJob
	for rows.Next() {
		j, err := scanReportJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (r *reportJobRepo) Requeue(ctx context.Context, conn DBTX, id uuid.UUID) error {
	_, err := conn.Exec(ctx, `UPDATE report_jobs SET status = 'pending', error_message = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("requeue report job: %w", err)
	}
	return nil
}

func scanReportJob(row pgx.Row) (*domain.ReportJob, error) {
	var j domain.ReportJob
	err := row.Scan(&j.ID, &j.PartnerID, &j.ReportKind, &j.Format, &j.Params, &j.Status,
		&j.StoragePath, &j.FileSizeBytes, &j.ErrorMessage, &j.CreatedAt, &j.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan report job: %w", err)
	}
	return &j, nil
}
