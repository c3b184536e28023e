package agenda

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/meetballs/backend/pkg/apperr"
)

func TestPlanReorder(t *testing.T) {
	existing := []int{0, 1, 2, 3}

	tests := []struct {
		name    string
		moves   []Move
		want    map[int]int
		wantErr bool
	}{
		{
			name:  "swap two items",
			moves: []Move{{OldPosition: 0, NewPosition: 1}, {OldPosition: 1, NewPosition: 0}},
			want:  map[int]int{0: 1, 1: 0},
		},
		{
			name: "rotate three items",
			moves: []Move{
				{OldPosition: 0, NewPosition: 2},
				{OldPosition: 1, NewPosition: 0},
				{OldPosition: 2, NewPosition: 1},
			},
			want: map[int]int{0: 2, 1: 0, 2: 1},
		},
		{
			name:    "unknown old position",
			moves:   []Move{{OldPosition: 7, NewPosition: 0}, {OldPosition: 0, NewPosition: 1}},
			wantErr: true,
		},
		{
			name:    "duplicate old position",
			moves:   []Move{{OldPosition: 1, NewPosition: 0}, {OldPosition: 1, NewPosition: 2}},
			wantErr: true,
		},
		{
			name:    "duplicate new position",
			moves:   []Move{{OldPosition: 0, NewPosition: 2}, {OldPosition: 1, NewPosition: 2}},
			wantErr: true,
		},
		{
			name:    "negative new position",
			moves:   []Move{{OldPosition: 0, NewPosition: -1}, {OldPosition: 1, NewPosition: 0}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planReorder(existing, tt.moves)
			if tt.wantErr {
				if !apperr.IsKind(err, apperr.KindValidation) {
					t.Fatalf("err = %v, want Validation", err)
				}
				if got := apperr.Message(err, ""); got != "invalid positions array" {
					t.Errorf("message = %q, want %q", got, "invalid positions array")
				}
				return
			}
			if err != nil {
				t.Fatalf("planReorder: %v", err)
			}
			if len(plan) != len(tt.want) {
				t.Fatalf("plan has %d entries, want %d", len(plan), len(tt.want))
			}
			for oldPos, newPos := range tt.want {
				if plan[oldPos] != newPos {
					t.Errorf("plan[%d] = %d, want %d", oldPos, plan[oldPos], newPos)
				}
			}
		})
	}
}

func TestPlanReorderPreservesDensity(t *testing.T) {
	// A full permutation of a dense set must land on a dense set.
	existing := []int{0, 1, 2}
	moves := []Move{
		{OldPosition: 0, NewPosition: 2},
		{OldPosition: 1, NewPosition: 1},
		{OldPosition: 2, NewPosition: 0},
	}
	plan, err := planReorder(existing, moves)
	if err != nil {
		t.Fatalf("planReorder: %v", err)
	}
	seen := make(map[int]bool)
	for _, newPos := range plan {
		seen[newPos] = true
	}
	for i := range existing {
		if !seen[i] {
			t.Errorf("position %d missing from reordered set", i)
		}
	}
}

// A swap must go to the database as one statement. Applied move by move, the
// first update parks a row on a position a later update's WHERE still matches,
// so both rows end up on the same position and the commit fails.
func TestReorderQuerySingleStatement(t *testing.T) {
	meetingID := uuid.New()
	plan := map[int]int{0: 2, 2: 0}

	q, args := reorderQuery(meetingID, plan)

	if got := strings.Count(q, "UPDATE"); got != 1 {
		t.Fatalf("query contains %d UPDATEs, want 1", got)
	}
	if got := strings.Count(q, "($"); got != len(plan) {
		t.Errorf("query carries %d value rows, want %d", got, len(plan))
	}
	if len(args) != 1+2*len(plan) {
		t.Fatalf("args = %d, want %d", len(args), 1+2*len(plan))
	}
	if args[0] != meetingID {
		t.Errorf("args[0] = %v, want meeting id", args[0])
	}
	// Pairs follow map order; each must correspond to one plan entry.
	for i := 1; i < len(args); i += 2 {
		oldPos, ok := args[i].(int)
		if !ok {
			t.Fatalf("args[%d] = %T, want int", i, args[i])
		}
		newPos, ok := args[i+1].(int)
		if !ok {
			t.Fatalf("args[%d] = %T, want int", i+1, args[i+1])
		}
		if plan[oldPos] != newPos {
			t.Errorf("args move %d->%d, plan says %d->%d", oldPos, newPos, oldPos, plan[oldPos])
		}
	}
	for i := 0; i < 2*len(plan); i++ {
		placeholder := fmt.Sprintf("$%d", i+2)
		if !strings.Contains(q, placeholder) {
			t.Errorf("query missing placeholder %s", placeholder)
		}
	}
}
