// Package suggestions manages participant-proposed agenda items. Accepting a
// suggestion appends an agenda item; the suggestion row stays as a record.
package suggestions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/apperr"
)

// Repository handles suggestion persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a suggestion repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const suggestionColumns = `id, meeting_id, participant_id, name, description, expected_duration_ms, accepted, speaker_id, created_at, updated_at`

func scanSuggestion(row pgx.Row) (*models.Suggestion, error) {
	var s models.Suggestion
	err := row.Scan(&s.ID, &s.MeetingID, &s.ParticipantID, &s.Name, &s.Description, &s.ExpectedDurationMs, &s.Accepted, &s.SpeakerID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create persists a new suggestion.
func (r *Repository) Create(ctx context.Context, s *models.Suggestion) error {
	const q = `INSERT INTO suggestions (id, meeting_id, participant_id, name, description, expected_duration_ms, speaker_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, s.MeetingID, s.ParticipantID, s.Name, s.Description, s.ExpectedDurationMs, s.SpeakerID).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// ListByMeeting returns the meeting's suggestions, newest first.
func (r *Repository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.Suggestion, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+suggestionColumns+` FROM suggestions WHERE meeting_id = $1 ORDER BY created_at DESC`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// GetByID returns one suggestion, or a NotFound error.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Suggestion, error) {
	s, err := scanSuggestion(r.pool.QueryRow(ctx, `SELECT `+suggestionColumns+` FROM suggestions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("suggestion not found")
	}
	return s, err
}

// Update edits a suggestion's proposal fields. Accepted suggestions are
// frozen.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name, description *string, expectedDurationMs *int64) error {
	const q = `UPDATE suggestions SET
			name = COALESCE($1, name),
			description = COALESCE($2, description),
			expected_duration_ms = COALESCE($3, expected_duration_ms),
			updated_at = NOW()
		WHERE id = $4 AND NOT accepted`
	tag, err := r.pool.Exec(ctx, q, name, description, expectedDurationMs, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("suggestion not found")
	}
	return nil
}

// AcceptAndAppend flags the suggestion accepted and synthesizes its agenda
// item at the next free position. Both writes commit together: a failed
// append rolls the accept back, so a retry is never blocked. A suggestion
// that already was accepted returns InvalidState, which keeps a double
// accept from appending twice.
func (r *Repository) AcceptAndAppend(ctx context.Context, s *models.Suggestion) (*models.AgendaItem, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE suggestions SET accepted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT accepted`, s.ID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.InvalidState("suggestion already accepted")
	}

	var next int
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM agenda_items WHERE meeting_id = $1`, s.MeetingID).Scan(&next); err != nil {
		return nil, err
	}
	item := &models.AgendaItem{
		MeetingID:          s.MeetingID,
		Position:           next,
		Name:               s.Name,
		Description:        s.Description,
		ExpectedDurationMs: s.ExpectedDurationMs,
		SpeakerID:          s.SpeakerID,
	}
	const q = `INSERT INTO agenda_items (meeting_id, position, name, description, expected_duration_ms, speaker_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`
	if err := tx.QueryRow(ctx, q, item.MeetingID, item.Position, item.Name, item.Description, item.ExpectedDurationMs, item.SpeakerID).
		Scan(&item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes a suggestion.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suggestions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("suggestion not found")
	}
	return nil
}
