package agenda

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/apperr"
)

// Repository handles agenda item persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an agenda repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `meeting_id, position, name, description, expected_duration_ms, actual_duration_ms, start_time, is_current, speaker_id, speaker_name, speaker_materials, created_at, updated_at`

func scanItem(row pgx.Row) (*models.AgendaItem, error) {
	var a models.AgendaItem
	err := row.Scan(&a.MeetingID, &a.Position, &a.Name, &a.Description, &a.ExpectedDurationMs, &a.ActualDurationMs, &a.StartTime, &a.IsCurrent, &a.SpeakerID, &a.SpeakerName, &a.SpeakerMaterials, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ListByMeeting returns the meeting's agenda items ordered ascending by position.
func (r *Repository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.AgendaItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM agenda_items WHERE meeting_id = $1 ORDER BY position ASC`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AgendaItem
	for rows.Next() {
		a, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// GetByPosition returns one agenda item, or a NotFound error.
func (r *Repository) GetByPosition(ctx context.Context, meetingID uuid.UUID, position int) (*models.AgendaItem, error) {
	a, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM agenda_items WHERE meeting_id = $1 AND position = $2`, meetingID, position))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("agenda item not found")
	}
	return a, err
}

// Insert persists a new agenda item at the requested position. The slot must
// be free; siblings are never shifted by an insert.
func (r *Repository) Insert(ctx context.Context, item *models.AgendaItem) error {
	const q = `INSERT INTO agenda_items (meeting_id, position, name, description, expected_duration_ms, speaker_id, speaker_name, speaker_materials)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, q,
		item.MeetingID, item.Position, item.Name, item.Description, item.ExpectedDurationMs,
		item.SpeakerID, item.SpeakerName, item.SpeakerMaterials,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.Conflict(fmt.Sprintf("agenda item with position %d already exists", item.Position))
	}
	return err
}

// DeleteAt removes the item at the given position and decrements every later
// position by one, restoring density. Delete and renumber commit together.
func (r *Repository) DeleteAt(ctx context.Context, meetingID uuid.UUID, position int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM agenda_items WHERE meeting_id = $1 AND position = $2`, meetingID, position)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("agenda item not found")
	}
	_, err = tx.Exec(ctx, `UPDATE agenda_items SET position = position - 1, updated_at = NOW()
		WHERE meeting_id = $1 AND position > $2`, meetingID, position)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Reorder applies a batch of position moves as one transaction. The primary
// key on (meeting_id, position) is deferred, so intermediate swap states are
// never observable.
func (r *Repository) Reorder(ctx context.Context, meetingID uuid.UUID, moves []Move) error {
	if len(moves) < 2 {
		return apperr.Validation("at least two position moves required")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	oldPositions := make([]int, 0, len(moves))
	for _, m := range moves {
		oldPositions = append(oldPositions, m.OldPosition)
	}
	rows, err := tx.Query(ctx, `SELECT position FROM agenda_items
		WHERE meeting_id = $1 AND position = ANY($2) FOR UPDATE`, meetingID, oldPositions)
	if err != nil {
		return err
	}
	var existing []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	plan, err := planReorder(existing, moves)
	if err != nil {
		return err
	}
	q, args := reorderQuery(meetingID, plan)
	if _, err := tx.Exec(ctx, q, args...); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// reorderQuery builds one UPDATE applying the whole plan. A single statement
// matters: its WHERE sees every row at its pre-statement position, so
// overlapping moves (a swap moves a row onto a position another move reads)
// cannot cascade, which sequential per-move updates would.
func reorderQuery(meetingID uuid.UUID, plan map[int]int) (string, []interface{}) {
	args := make([]interface{}, 0, 1+2*len(plan))
	args = append(args, meetingID)
	var values strings.Builder
	for oldPos, newPos := range plan {
		if values.Len() > 0 {
			values.WriteString(", ")
		}
		fmt.Fprintf(&values, "($%d::int, $%d::int)", len(args)+1, len(args)+2)
		args = append(args, oldPos, newPos)
	}
	q := `UPDATE agenda_items AS a SET position = v.new_pos, updated_at = NOW()
		FROM (VALUES ` + values.String() + `) AS v(old_pos, new_pos)
		WHERE a.meeting_id = $1 AND a.position = v.old_pos`
	return q, args
}

// UpdateAt updates the non-positional fields of one agenda item.
func (r *Repository) UpdateAt(ctx context.Context, meetingID uuid.UUID, position int, name, description *string, expectedDurationMs *int64, speakerID *uuid.UUID, speakerName, speakerMaterials *string) error {
	const q = `UPDATE agenda_items SET
			name = COALESCE($1, name),
			description = COALESCE($2, description),
			expected_duration_ms = COALESCE($3, expected_duration_ms),
			speaker_id = $4,
			speaker_name = $5,
			speaker_materials = $6,
			updated_at = NOW()
		WHERE meeting_id = $7 AND position = $8`
	tag, err := r.pool.Exec(ctx, q, name, description, expectedDurationMs, speakerID, speakerName, speakerMaterials, meetingID, position)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("agenda item not found")
	}
	return nil
}
