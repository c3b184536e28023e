// Package agenda owns the ordered agenda item list of a meeting. Positions
// are 0-based and kept dense: deletes compact later positions, reorders are
// applied as one batch.
package agenda

import (
	"github.com/meetballs/backend/pkg/apperr"
)

// Move maps one agenda item from its current position to a new one.
type Move struct {
	OldPosition int `json:"old_position"`
	NewPosition int `json:"new_position"`
}

// planReorder validates a batch of moves against the positions currently
// held by the meeting and returns the old->new position mapping.
//
// Every old position must resolve to an existing item, old positions must be
// unique, and new positions must be distinct. A violation here means the API
// layer let through an inconsistent set, so the message stays
// assertion-flavoured.
func planReorder(existing []int, moves []Move) (map[int]int, error) {
	held := make(map[int]bool, len(existing))
	for _, p := range existing {
		held[p] = true
	}

	plan := make(map[int]int, len(moves))
	seenNew := make(map[int]bool, len(moves))
	for _, m := range moves {
		if !held[m.OldPosition] {
			return nil, apperr.Validation("invalid positions array")
		}
		if _, dup := plan[m.OldPosition]; dup {
			return nil, apperr.Validation("invalid positions array")
		}
		if seenNew[m.NewPosition] || m.NewPosition < 0 {
			return nil, apperr.Validation("invalid positions array")
		}
		plan[m.OldPosition] = m.NewPosition
		seenNew[m.NewPosition] = true
	}
	return plan, nil
}
