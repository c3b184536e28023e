package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad input"), KindValidation},
		{"conflict", Conflict("dup"), KindConflict},
		{"not found", NotFound("missing"), KindNotFound},
		{"forbidden", Forbidden("nope"), KindForbidden},
		{"unauthorized", Unauthorized("who"), KindUnauthorized},
		{"invalid state", InvalidState("too late"), KindInvalidState},
		{"wrapped keeps kind", fmt.Errorf("outer: %w", NotFound("missing")), KindNotFound},
		{"foreign error", errors.New("plain"), KindInternal},
		{"nil-ish internal", Internal("boom", errors.New("cause")), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMessageHidesCauses(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Internal("failed to save", cause)

	if got := Message(err, "fallback"); got != "failed to save" {
		t.Errorf("Message = %q, want %q", got, "failed to save")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped cause lost")
	}
	if got := Message(errors.New("raw"), "fallback"); got != "fallback" {
		t.Errorf("Message on foreign error = %q, want fallback", got)
	}
}
