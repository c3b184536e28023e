package meetings

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

// Repository handles meeting persistence and the transactional lifecycle
// transitions. Each transition locks the meeting row first, so concurrent
// commands on one meeting serialize; the loser re-reads a state that no
// longer allows its transition and fails with InvalidState.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a meeting repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const meetingColumns = `id, name, description, status, started_at, ended_at, duration_ms, host_id, zoom_meeting_id, zoom_uuid, join_url, meeting_password, enable_transcription, created_at, updated_at`

func scanMeeting(row pgx.Row) (*models.Meeting, error) {
	var m models.Meeting
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Status, &m.StartedAt, &m.EndedAt, &m.DurationMs, &m.HostID, &m.ZoomMeetingID, &m.ZoomUUID, &m.JoinURL, &m.MeetingPassword, &m.EnableTranscription, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q queryer, meetingID uuid.UUID, forUpdate bool) ([]models.AgendaItem, error) {
	sql := `SELECT meeting_id, position, name, description, expected_duration_ms, actual_duration_ms, start_time, is_current, speaker_id, speaker_name, speaker_materials, created_at, updated_at
		FROM agenda_items WHERE meeting_id = $1 ORDER BY position ASC`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, sql, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []models.AgendaItem
	for rows.Next() {
		var a models.AgendaItem
		if err := rows.Scan(&a.MeetingID, &a.Position, &a.Name, &a.Description, &a.ExpectedDurationMs, &a.ActualDurationMs, &a.StartTime, &a.IsCurrent, &a.SpeakerID, &a.SpeakerName, &a.SpeakerMaterials, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func loadParticipants(ctx context.Context, q queryer, meetingID uuid.UUID) ([]models.Participant, error) {
	rows, err := q.Query(ctx, `SELECT id, meeting_id, user_email, user_name, role, time_joined, invited, is_duplicate, hashed_magic_link_token, created_at, updated_at
		FROM participants WHERE meeting_id = $1 ORDER BY created_at ASC`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.MeetingID, &p.UserEmail, &p.UserName, &p.Role, &p.TimeJoined, &p.Invited, &p.IsDuplicate, &p.HashedMagicLinkToken, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Create inserts a meeting together with its initial participants and agenda
// items in one transaction.
func (r *Repository) Create(ctx context.Context, m *models.Meeting, participants []models.Participant, items []models.AgendaItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO meetings (id, name, description, status, duration_ms, host_id, zoom_meeting_id, zoom_uuid, join_url, meeting_password, enable_transcription, started_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	err = tx.QueryRow(ctx, q, m.Name, m.Description, m.Status, m.DurationMs, m.HostID, m.ZoomMeetingID, m.ZoomUUID, m.JoinURL, m.MeetingPassword, m.EnableTranscription, m.StartedAt).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("zoom meeting already exists")
		}
		return err
	}

	for i := range participants {
		p := &participants[i]
		err := tx.QueryRow(ctx, `INSERT INTO participants (id, meeting_id, user_email, user_name, role, invited)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at`,
			m.ID, p.UserEmail, p.UserName, p.Role, p.Invited).
			Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("duplicate participant email")
			}
			return err
		}
		p.MeetingID = m.ID
	}

	for i := range items {
		a := &items[i]
		err := tx.QueryRow(ctx, `INSERT INTO agenda_items (meeting_id, position, name, description, expected_duration_ms, speaker_id, speaker_name, speaker_materials)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at`,
			m.ID, a.Position, a.Name, a.Description, a.ExpectedDurationMs, a.SpeakerID, a.SpeakerName, a.SpeakerMaterials).
			Scan(&a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("duplicate agenda item position")
			}
			return err
		}
		a.MeetingID = m.ID
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	m.Participants = participants
	m.AgendaItems = items
	return nil
}

// GetByID returns a meeting by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	m, err := scanMeeting(r.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("meeting not found")
	}
	return m, err
}

// GetByZoomUUID returns the meeting imported from a Zoom UUID, or nil.
func (r *Repository) GetByZoomUUID(ctx context.Context, zoomUUID string) (*models.Meeting, error) {
	m, err := scanMeeting(r.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE zoom_uuid = $1`, zoomUUID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// GetWithRelations returns a meeting with its agenda items and participants.
func (r *Repository) GetWithRelations(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.AgendaItems, err = loadItems(ctx, r.pool, id, false); err != nil {
		return nil, err
	}
	if m.Participants, err = loadParticipants(ctx, r.pool, id); err != nil {
		return nil, err
	}
	return m, nil
}

// Exists reports whether a meeting with the given ID exists.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx, `SELECT 1 FROM meetings WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// IsHost reports whether userID hosts the meeting.
func (r *Repository) IsHost(ctx context.Context, meetingID, userID uuid.UUID) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx, `SELECT 1 FROM meetings WHERE id = $1 AND host_id = $2`, meetingID, userID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// List returns the host's meetings filtered by lifecycle bucket
// ("upcoming", "past" or "all"), ordered by started_at.
func (r *Repository) List(ctx context.Context, hostID uuid.UUID, bucket string, ascending bool) ([]models.Meeting, error) {
	sql := `SELECT ` + meetingColumns + ` FROM meetings WHERE host_id = $1`
	switch bucket {
	case "past":
		sql += ` AND status = 'ended'`
	case "upcoming":
		sql += ` AND status IN ('waiting', 'started')`
	}
	if ascending {
		sql += ` ORDER BY started_at ASC NULLS LAST`
	} else {
		sql += ` ORDER BY started_at DESC NULLS LAST`
	}
	rows, err := r.pool.Query(ctx, sql, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

// Update sets the meeting's non-structural fields. Lifecycle status and
// timestamps are never settable through this path.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name, description *string, durationMs *int64, enableTranscription *bool) error {
	const q = `UPDATE meetings SET
			name = COALESCE($1, name),
			description = COALESCE($2, description),
			duration_ms = COALESCE($3, duration_ms),
			enable_transcription = COALESCE($4, enable_transcription),
			updated_at = NOW()
		WHERE id = $5`
	tag, err := r.pool.Exec(ctx, q, name, description, durationMs, enableTranscription, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("meeting not found")
	}
	return nil
}

// Delete removes the meeting and everything it owns in one transaction.
// Ownership is cascaded explicitly: suggestions, agenda items, email logs,
// recordings and participants go first.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, q := range []string{
		`DELETE FROM suggestions WHERE meeting_id = $1`,
		`DELETE FROM agenda_items WHERE meeting_id = $1`,
		`DELETE FROM email_logs WHERE meeting_id = $1`,
		`DELETE FROM recordings WHERE meeting_id = $1`,
		`DELETE FROM participants WHERE meeting_id = $1`,
	} {
		if _, err := tx.Exec(ctx, q, id); err != nil {
			return err
		}
	}
	tag, err := tx.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("meeting not found")
	}
	return tx.Commit(ctx)
}

// transition loads the meeting and its agenda items under a row lock,
// applies fn, and persists the resulting meeting/item state atomically.
func (r *Repository) transition(ctx context.Context, meetingID, requesterID uuid.UUID, forbiddenMsg string,
	fn func(m *models.Meeting, items []models.AgendaItem) ([]*models.AgendaItem, error)) (*models.Meeting, error) {

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	m, err := scanMeeting(tx.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1 FOR UPDATE`, meetingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("meeting not found")
	}
	if err != nil {
		return nil, err
	}
	if m.HostID != requesterID {
		return nil, apperr.Forbidden(forbiddenMsg)
	}

	items, err := loadItems(ctx, tx, meetingID, true)
	if err != nil {
		return nil, err
	}

	prevStatus := m.Status
	changed, err := fn(m, items)
	if err != nil {
		return nil, err
	}

	// Conditional update doubles as a compare-and-swap on status.
	tag, err := tx.Exec(ctx, `UPDATE meetings SET status = $1, started_at = $2, ended_at = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`, m.Status, m.StartedAt, m.EndedAt, meetingID, prevStatus)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.InvalidState("meeting state changed concurrently")
	}

	for _, a := range changed {
		if a == nil {
			continue
		}
		if _, err := tx.Exec(ctx, `UPDATE agenda_items SET is_current = $1, start_time = $2, actual_duration_ms = $3, updated_at = NOW()
			WHERE meeting_id = $4 AND position = $5`,
			a.IsCurrent, a.StartTime, a.ActualDurationMs, meetingID, a.Position); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	m.AgendaItems = items
	return m, nil
}

// Start transitions the meeting to started and marks the first agenda item
// current. Host only.
func (r *Repository) Start(ctx context.Context, meetingID, requesterID uuid.UUID, now time.Time) (*models.Meeting, error) {
	return r.transition(ctx, meetingID, requesterID, "cannot start meeting",
		func(m *models.Meeting, items []models.AgendaItem) ([]*models.AgendaItem, error) {
			first, err := applyStart(m, items, now)
			if err != nil {
				return nil, err
			}
			return []*models.AgendaItem{first}, nil
		})
}

// Advance moves the current-item cursor one step forward. Host only.
func (r *Repository) Advance(ctx context.Context, meetingID, requesterID uuid.UUID, now time.Time) (*models.Meeting, error) {
	return r.transition(ctx, meetingID, requesterID, "cannot move to next meeting item",
		func(m *models.Meeting, items []models.AgendaItem) ([]*models.AgendaItem, error) {
			curr, next, err := applyAdvance(m, items, now)
			if err != nil {
				return nil, err
			}
			return []*models.AgendaItem{curr, next}, nil
		})
}

// End transitions the meeting to ended and closes out any current item.
// Host only.
func (r *Repository) End(ctx context.Context, meetingID, requesterID uuid.UUID, now time.Time) (*models.Meeting, error) {
	return r.transition(ctx, meetingID, requesterID, "cannot end meeting",
		func(m *models.Meeting, items []models.AgendaItem) ([]*models.AgendaItem, error) {
			last, err := applyEnd(m, items, now)
			if err != nil {
				return nil, err
			}
			return []*models.AgendaItem{last}, nil
		})
}
