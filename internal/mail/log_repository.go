package mail

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetballs/backend/internal/models"
)

// LogRepository records outbound email outcomes per meeting.
type LogRepository struct {
	pool *pgxpool.Pool
}

// NewLogRepository creates an email log repository.
func NewLogRepository(pool *pgxpool.Pool) *LogRepository {
	return &LogRepository{pool: pool}
}

// LogInvitation records one invitation send attempt.
func (r *LogRepository) LogInvitation(ctx context.Context, meetingID uuid.UUID, recipientEmail, status string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO email_logs (id, meeting_id, recipient_email, email_type, status)
		VALUES (gen_random_uuid(), $1, $2, 'invitation', $3)`, meetingID, recipientEmail, status)
	return err
}

// ListByMeeting returns the meeting's email log, newest first.
func (r *LogRepository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.EmailLog, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, meeting_id, recipient_email, email_type, status, created_at
		FROM email_logs WHERE meeting_id = $1 ORDER BY created_at DESC`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EmailLog
	for rows.Next() {
		var l models.EmailLog
		if err := rows.Scan(&l.ID, &l.MeetingID, &l.RecipientEmail, &l.EmailType, &l.Status, &l.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, l)
	}
	return list, rows.Err()
}
