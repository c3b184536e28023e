// Package meetings implements the meeting lifecycle engine: the state
// machine moving a meeting through waiting -> started -> ended and advancing
// the current agenda item one step at a time.
package meetings

import (
	"sort"
	"time"

	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/apperr"
)

// applyStart transitions a waiting meeting to started at now and marks the
// lowest-positioned agenda item current. Returns the item made current, or
// nil when the meeting has no agenda items.
func applyStart(m *models.Meeting, items []models.AgendaItem, now time.Time) (*models.AgendaItem, error) {
	if m.Status != models.MeetingWaiting {
		return nil, apperr.InvalidState("cannot start an ongoing or ended meeting")
	}
	m.Status = models.MeetingStarted
	m.StartedAt = &now

	if len(items) == 0 {
		return nil, nil
	}
	first := &items[0]
	for i := range items {
		if items[i].Position < first.Position {
			first = &items[i]
		}
	}
	first.StartTime = &now
	first.IsCurrent = true
	return first, nil
}

// applyAdvance moves the current-item cursor forward by exactly one
// position. The superseded item records its elapsed duration in
// milliseconds. Returns the superseded and the newly current item.
func applyAdvance(m *models.Meeting, items []models.AgendaItem, now time.Time) (curr, next *models.AgendaItem, err error) {
	if m.Status != models.MeetingStarted {
		return nil, nil, apperr.InvalidState("meeting not started")
	}
	if len(items) <= 1 {
		return nil, nil, apperr.InvalidState("no next agenda item")
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })

	active := -1
	for i := range items {
		if items[i].IsCurrent {
			active = i
			break
		}
	}
	if active < 0 || active+1 >= len(items) {
		return nil, nil, apperr.InvalidState("no next agenda item")
	}

	curr = &items[active]
	next = &items[active+1]

	curr.IsCurrent = false
	curr.ActualDurationMs = elapsedMs(curr.StartTime, now)
	next.IsCurrent = true
	next.StartTime = &now
	return curr, next, nil
}

// applyEnd transitions a started meeting to ended at now. If an item is
// current it is closed out with its elapsed duration; no new item is
// selected. Returns the closed item, or nil when none was current.
func applyEnd(m *models.Meeting, items []models.AgendaItem, now time.Time) (*models.AgendaItem, error) {
	if m.Status != models.MeetingStarted {
		return nil, apperr.InvalidState("cannot end a meeting that did not start or has ended")
	}
	m.Status = models.MeetingEnded
	m.EndedAt = &now

	for i := range items {
		if items[i].IsCurrent {
			last := &items[i]
			last.IsCurrent = false
			last.ActualDurationMs = elapsedMs(last.StartTime, now)
			return last, nil
		}
	}
	return nil, nil
}

// elapsedMs is the sole duration computation: end minus start, in
// milliseconds, never rounded or scaled.
func elapsedMs(start *time.Time, end time.Time) *int64 {
	var ms int64
	if start != nil {
		ms = end.Sub(*start).Milliseconds()
	}
	return &ms
}
