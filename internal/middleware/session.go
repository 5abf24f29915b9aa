package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
)

// CheckParticipantSession rejects participant tokens whose session was
// ended by logout or replaced by a later login. While the session store is
// unreachable a validly signed token is let through.
func CheckParticipantSession(authService *service.AuthService, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "session_check").Logger()
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		// Only enforce for participant tokens.
		if claims.TokenType != service.TokenTypeParticipant {
			c.Next()
			return
		}

		err := authService.ValidateParticipantSession(c.Request.Context(), claims)
		if errors.Is(err, service.ErrSessionInvalidated) {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}
		if err != nil {
			log.Warn().Err(err).Str("session_id", claims.ID).Msg("session store unavailable, trusting token")
		}

		c.Next()
	}
}
