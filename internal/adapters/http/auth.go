package http

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dkeye/Nearby/internal/core"
	"github.com/dkeye/Nearby/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const callerKey = "caller"

// Guard authenticates REST callers with the same verifier the realtime
// channel uses. Admins may broadcast and manage geofences.
type Guard struct {
	Verifier core.Verifier
	Admins   []string
	Timeout  time.Duration
}

// BearerAuth rejects requests without a valid "Authorization: Bearer" header
// and stores the verified user under callerKey.
func (g Guard) BearerAuth() gin.HandlerFunc {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return func(c *gin.Context) {
		scheme, token, _ := strings.Cut(c.GetHeader("Authorization"), " ")
		token = strings.TrimSpace(token)
		if !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		user, err := g.Verifier.Verify(ctx, token)
		cancel()
		if err != nil || user == nil {
			log.Warn().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("rejected bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(callerKey, *user)
		c.Next()
	}
}

// RequireAdmin must run after BearerAuth.
func (g Guard) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(g.Admins, string(caller(c).ID)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

// RequireSelf limits a /users/:id route to the caller's own id.
func RequireSelf() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Param("id") != string(caller(c).ID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func caller(c *gin.Context) domain.User {
	u, _ := c.Get(callerKey)
	user, _ := u.(domain.User)
	return user
}
