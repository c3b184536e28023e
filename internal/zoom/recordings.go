package zoom

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/apperr"
)

// Recording transfer states.
const (
	RecordingPending     = "pending"
	RecordingTransferred = "transferred"
	RecordingFailed      = "failed"
)

// RecordingRepository tracks cloud recordings awaiting transfer into S3.
type RecordingRepository struct {
	pool *pgxpool.Pool
}

// NewRecordingRepository creates a recording repository.
func NewRecordingRepository(pool *pgxpool.Pool) *RecordingRepository {
	return &RecordingRepository{pool: pool}
}

// Create registers a recording in the pending state.
func (r *RecordingRepository) Create(ctx context.Context, rec *models.Recording) error {
	rec.Status = RecordingPending
	return r.pool.QueryRow(ctx, `INSERT INTO recordings (id, meeting_id, download_url, status)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at, updated_at`,
		rec.MeetingID, rec.DownloadURL, rec.Status).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
}

// GetByID returns one recording, or a NotFound error.
func (r *RecordingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	var rec models.Recording
	err := r.pool.QueryRow(ctx, `SELECT id, meeting_id, download_url, s3_key, s3_url, size_bytes, status, created_at, updated_at
		FROM recordings WHERE id = $1`, id).
		Scan(&rec.ID, &rec.MeetingID, &rec.DownloadURL, &rec.S3Key, &rec.S3URL, &rec.SizeBytes, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("recording not found")
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByMeeting returns the meeting's recordings.
func (r *RecordingRepository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.Recording, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, meeting_id, download_url, s3_key, s3_url, size_bytes, status, created_at, updated_at
		FROM recordings WHERE meeting_id = $1 ORDER BY created_at DESC`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Recording
	for rows.Next() {
		var rec models.Recording
		if err := rows.Scan(&rec.ID, &rec.MeetingID, &rec.DownloadURL, &rec.S3Key, &rec.S3URL, &rec.SizeBytes, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// MarkTransferred records a completed transfer.
func (r *RecordingRepository) MarkTransferred(ctx context.Context, id uuid.UUID, s3Key, s3URL string, sizeBytes int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE recordings SET status = $1, s3_key = $2, s3_url = $3, size_bytes = $4, updated_at = NOW()
		WHERE id = $5`, RecordingTransferred, s3Key, s3URL, sizeBytes, id)
	return err
}

// MarkFailed records a permanently failed transfer.
func (r *RecordingRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE recordings SET status = $1, updated_at = NOW() WHERE id = $2`, RecordingFailed, id)
	return err
}
