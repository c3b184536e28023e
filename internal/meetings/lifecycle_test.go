package meetings

import (
	"testing"
	"time"

	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/apperr"
)

func threeItems() []models.AgendaItem {
	return []models.AgendaItem{
		{Position: 0, Name: "intro", ExpectedDurationMs: 60000},
		{Position: 1, Name: "demo", ExpectedDurationMs: 120000},
		{Position: 2, Name: "wrap-up", ExpectedDurationMs: 60000},
	}
}

func TestApplyStart(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("marks first item current", func(t *testing.T) {
		m := &models.Meeting{Status: models.MeetingWaiting}
		items := threeItems()
		first, err := applyStart(m, items, now)
		if err != nil {
			t.Fatalf("applyStart: %v", err)
		}
		if m.Status != models.MeetingStarted {
			t.Errorf("status = %q, want started", m.Status)
		}
		if m.StartedAt == nil || !m.StartedAt.Equal(now) {
			t.Errorf("started_at = %v, want %v", m.StartedAt, now)
		}
		if first == nil || first.Position != 0 {
			t.Fatalf("first = %+v, want position 0", first)
		}
		if !first.IsCurrent || first.StartTime == nil || !first.StartTime.Equal(now) {
			t.Errorf("first item not opened: %+v", first)
		}
	})

	t.Run("empty agenda starts without current item", func(t *testing.T) {
		m := &models.Meeting{Status: models.MeetingWaiting}
		first, err := applyStart(m, nil, now)
		if err != nil {
			t.Fatalf("applyStart: %v", err)
		}
		if first != nil {
			t.Errorf("first = %+v, want nil", first)
		}
		if m.Status != models.MeetingStarted {
			t.Errorf("status = %q, want started", m.Status)
		}
	})

	t.Run("rejects non-waiting states", func(t *testing.T) {
		for _, status := range []models.MeetingStatus{models.MeetingStarted, models.MeetingEnded} {
			m := &models.Meeting{Status: status}
			if _, err := applyStart(m, threeItems(), now); !apperr.IsKind(err, apperr.KindInvalidState) {
				t.Errorf("status %q: err = %v, want InvalidState", status, err)
			}
		}
	})
}

func TestApplyAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	started := func() (*models.Meeting, []models.AgendaItem) {
		m := &models.Meeting{Status: models.MeetingWaiting}
		items := threeItems()
		if _, err := applyStart(m, items, start); err != nil {
			t.Fatalf("applyStart: %v", err)
		}
		return m, items
	}

	t.Run("walks the agenda to the end", func(t *testing.T) {
		m, items := started()

		t1 := start.Add(90 * time.Second)
		curr, next, err := applyAdvance(m, items, t1)
		if err != nil {
			t.Fatalf("first advance: %v", err)
		}
		if curr.Position != 0 || next.Position != 1 {
			t.Fatalf("advance moved %d -> %d, want 0 -> 1", curr.Position, next.Position)
		}
		if curr.IsCurrent {
			t.Error("superseded item still current")
		}
		if curr.ActualDurationMs == nil || *curr.ActualDurationMs != 90000 {
			t.Errorf("actual duration = %v, want 90000", curr.ActualDurationMs)
		}
		if !next.IsCurrent || next.StartTime == nil || !next.StartTime.Equal(t1) {
			t.Errorf("next item not opened: %+v", next)
		}

		t2 := t1.Add(2 * time.Minute)
		curr, next, err = applyAdvance(m, items, t2)
		if err != nil {
			t.Fatalf("second advance: %v", err)
		}
		if curr.Position != 1 || next.Position != 2 {
			t.Fatalf("advance moved %d -> %d, want 1 -> 2", curr.Position, next.Position)
		}
		if *curr.ActualDurationMs != 120000 {
			t.Errorf("actual duration = %d, want 120000", *curr.ActualDurationMs)
		}

		// Third advance has nowhere to go.
		if _, _, err := applyAdvance(m, items, t2.Add(time.Minute)); !apperr.IsKind(err, apperr.KindInvalidState) {
			t.Errorf("advance past last item: err = %v, want InvalidState", err)
		}
	})

	t.Run("exactly one current item after each step", func(t *testing.T) {
		m, items := started()
		if _, _, err := applyAdvance(m, items, start.Add(time.Minute)); err != nil {
			t.Fatalf("advance: %v", err)
		}
		current := 0
		for _, it := range items {
			if it.IsCurrent {
				current++
			}
		}
		if current != 1 {
			t.Errorf("current items = %d, want 1", current)
		}
	})

	t.Run("requires a started meeting", func(t *testing.T) {
		for _, status := range []models.MeetingStatus{models.MeetingWaiting, models.MeetingEnded} {
			m := &models.Meeting{Status: status}
			if _, _, err := applyAdvance(m, threeItems(), start); !apperr.IsKind(err, apperr.KindInvalidState) {
				t.Errorf("status %q: err = %v, want InvalidState", status, err)
			}
		}
	})

	t.Run("single item has no next", func(t *testing.T) {
		m := &models.Meeting{Status: models.MeetingWaiting}
		items := []models.AgendaItem{{Position: 0, Name: "only"}}
		if _, err := applyStart(m, items, start); err != nil {
			t.Fatalf("applyStart: %v", err)
		}
		if _, _, err := applyAdvance(m, items, start.Add(time.Minute)); !apperr.IsKind(err, apperr.KindInvalidState) {
			t.Errorf("err = %v, want InvalidState", err)
		}
	})
}

func TestApplyEnd(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("closes the current item", func(t *testing.T) {
		m := &models.Meeting{Status: models.MeetingWaiting}
		items := threeItems()
		if _, err := applyStart(m, items, start); err != nil {
			t.Fatalf("applyStart: %v", err)
		}

		end := start.Add(5 * time.Minute)
		last, err := applyEnd(m, items, end)
		if err != nil {
			t.Fatalf("applyEnd: %v", err)
		}
		if m.Status != models.MeetingEnded || m.EndedAt == nil || !m.EndedAt.Equal(end) {
			t.Errorf("meeting not ended: status=%q ended_at=%v", m.Status, m.EndedAt)
		}
		if last == nil || last.IsCurrent {
			t.Fatalf("last = %+v, want closed item", last)
		}
		if last.ActualDurationMs == nil || *last.ActualDurationMs != 300000 {
			t.Errorf("actual duration = %v, want 300000", last.ActualDurationMs)
		}
		for _, it := range items {
			if it.IsCurrent {
				t.Errorf("item %d still current after end", it.Position)
			}
		}
	})

	t.Run("ends with no current item", func(t *testing.T) {
		m := &models.Meeting{Status: models.MeetingWaiting}
		if _, err := applyStart(m, nil, start); err != nil {
			t.Fatalf("applyStart: %v", err)
		}
		last, err := applyEnd(m, nil, start.Add(time.Minute))
		if err != nil {
			t.Fatalf("applyEnd: %v", err)
		}
		if last != nil {
			t.Errorf("last = %+v, want nil", last)
		}
	})

	t.Run("transitions are monotonic", func(t *testing.T) {
		for _, status := range []models.MeetingStatus{models.MeetingWaiting, models.MeetingEnded} {
			m := &models.Meeting{Status: status}
			if _, err := applyEnd(m, nil, start); !apperr.IsKind(err, apperr.KindInvalidState) {
				t.Errorf("status %q: err = %v, want InvalidState", status, err)
			}
		}
	})
}

func TestElapsedMs(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start *time.Time
		end   time.Time
		want  int64
	}{
		{"nil start", nil, base, 0},
		{"exact seconds", &base, base.Add(42 * time.Second), 42000},
		{"sub-millisecond truncates", &base, base.Add(1500 * time.Microsecond), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := elapsedMs(tt.start, tt.end)
			if got == nil || *got != tt.want {
				t.Errorf("elapsedMs = %v, want %d", got, tt.want)
			}
		})
	}
}
