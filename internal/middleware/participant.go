package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/meetballs/backend/internal/models"
	"github.com/meetballs/backend/pkg/response"
)

// ContextParticipant is the key for the magic-link participant in gin context.
const ContextParticipant = "participant"

// ParticipantResolver resolves a presented magic-link token to its
// participant. All failure modes must collapse into one error so callers
// cannot distinguish which check failed.
type ParticipantResolver func(ctx context.Context, token string) (*models.Participant, error)

// Participant returns a middleware that authenticates a participant via the
// X-Participant magic-link token header.
func Participant(resolve ParticipantResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Participant")
		if token == "" {
			response.Unauthorized(c, "invalid or expired link")
			c.Abort()
			return
		}
		p, err := resolve(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired link")
			c.Abort()
			return
		}
		c.Set(ContextParticipant, p)
		c.Next()
	}
}
