package participants

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/apperr"
)

// Repository handles participant persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a participant repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const participantColumns = `id, meeting_id, user_email, user_name, role, time_joined, invited, is_duplicate, hashed_magic_link_token, created_at, updated_at`

func scanParticipant(row pgx.Row) (*models.Participant, error) {
	var p models.Participant
	err := row.Scan(&p.ID, &p.MeetingID, &p.UserEmail, &p.UserName, &p.Role, &p.TimeJoined, &p.Invited, &p.IsDuplicate, &p.HashedMagicLinkToken, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ListByMeeting returns the meeting's active roster.
func (r *Repository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.Participant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+participantColumns+` FROM participants
		WHERE meeting_id = $1 AND NOT is_duplicate ORDER BY created_at ASC`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// GetByID returns one participant, or a NotFound error.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	p, err := scanParticipant(r.pool.QueryRow(ctx, `SELECT `+participantColumns+` FROM participants WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("participant not found")
	}
	return p, err
}

// FindByEmail returns the active participant with the given email, or nil.
func (r *Repository) FindByEmail(ctx context.Context, meetingID uuid.UUID, email string) (*models.Participant, error) {
	p, err := scanParticipant(r.pool.QueryRow(ctx, `SELECT `+participantColumns+` FROM participants
		WHERE meeting_id = $1 AND user_email = $2 AND NOT is_duplicate`, meetingID, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// Add inserts a participant, reactivating a matching soft-removed row if one
// exists. An active row with the same email is a conflict.
func (r *Repository) Add(ctx context.Context, p *models.Participant) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	existing, err := scanParticipant(tx.QueryRow(ctx, `SELECT `+participantColumns+` FROM participants
		WHERE meeting_id = $1 AND user_email = $2 FOR UPDATE`, p.MeetingID, p.UserEmail))
	switch {
	case err == nil:
		if !existing.IsDuplicate {
			return apperr.Conflict("participant already exists")
		}
		// Reactivate: same identity, fresh roster state.
		err = tx.QueryRow(ctx, `UPDATE participants SET
				user_name = $1, role = $2, is_duplicate = FALSE, time_joined = NULL,
				invited = FALSE, hashed_magic_link_token = NULL, updated_at = NOW()
			WHERE id = $3
			RETURNING `+participantColumns,
			p.UserName, p.Role, existing.ID).
			Scan(&p.ID, &p.MeetingID, &p.UserEmail, &p.UserName, &p.Role, &p.TimeJoined, &p.Invited, &p.IsDuplicate, &p.HashedMagicLinkToken, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return err
		}
	case errors.Is(err, pgx.ErrNoRows):
		err = tx.QueryRow(ctx, `INSERT INTO participants (id, meeting_id, user_email, user_name, role)
			VALUES (gen_random_uuid(), $1, $2, $3, $4)
			RETURNING id, created_at, updated_at`,
			p.MeetingID, p.UserEmail, p.UserName, p.Role).
			Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if isUniqueViolation(err) {
			return apperr.Conflict("participant already exists")
		}
		if err != nil {
			return err
		}
	default:
		return err
	}
	return tx.Commit(ctx)
}

// UpdateRole changes a participant's role.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role models.ParticipantRole) error {
	tag, err := r.pool.Exec(ctx, `UPDATE participants SET role = $1, updated_at = NOW() WHERE id = $2 AND NOT is_duplicate`, role, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("participant not found")
	}
	return nil
}

// MarkDuplicate soft-removes a participant from the active roster, clearing
// presence, invitation state and the link hash. The row stays so history and
// a later re-add keep working.
func (r *Repository) MarkDuplicate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE participants SET is_duplicate = TRUE, time_joined = NULL, invited = FALSE,
			hashed_magic_link_token = NULL, updated_at = NOW()
		WHERE id = $1 AND NOT is_duplicate`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("participant not found")
	}
	return nil
}

// MarkPresent records the participant's join time. Idempotent: a second join
// keeps the first timestamp.
func (r *Repository) MarkPresent(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE participants SET time_joined = COALESCE(time_joined, $1), updated_at = NOW() WHERE id = $2`, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("participant not found")
	}
	return nil
}

// MarkAbsent clears the participant's join time.
func (r *Repository) MarkAbsent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE participants SET time_joined = NULL, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("participant not found")
	}
	return nil
}

// SetMagicLink stores the bcrypt hash of the newest issued token and marks
// the participant invited. Any previously issued token stops verifying.
func (r *Repository) SetMagicLink(ctx context.Context, id uuid.UUID, hashedToken string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE participants SET hashed_magic_link_token = $1, invited = TRUE, updated_at = NOW()
		WHERE id = $2 AND NOT is_duplicate`, hashedToken, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("participant not found")
	}
	return nil
}
