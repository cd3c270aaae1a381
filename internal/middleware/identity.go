package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"promptpix/api/internal/config"
	"promptpix/api/internal/models"
	"promptpix/api/internal/repository"
	"promptpix/api/internal/security"
)

const (
	deviceIDHeader = "X-Device-Id"
	identityKey    = "identity"
)

// Identity resolves the caller for endpoints open to both signed-in users
// and anonymous devices. A valid bearer token yields a user identity; the
// device id header, issued back to the client when absent, yields an
// anonymous one. An invalid token falls through to anonymous rather than
// rejecting, so an expired session can still use the free tier.
func Identity(cfg *config.AppConfig, users *repository.UserRepository, sessions *repository.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			if claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTAccessSecret); err == nil {
				if session, err := sessions.GetByID(c.Request.Context(), claims.SessionID); err == nil &&
					session.UserID == claims.UserID {
					if user, err := users.GetByID(c.Request.Context(), claims.UserID); err == nil &&
						user.Status == models.UserStatusActive {
						c.Set(identityKey, models.UserIdentity(user.ID))
						c.Set("current_user", user)
						c.Next()
						return
					}
				}
			}
		}

		deviceID := c.GetHeader(deviceIDHeader)
		if deviceID == "" {
			deviceID = uuid.NewString()
		}
		c.Header(deviceIDHeader, deviceID)
		c.Set(identityKey, models.AnonymousIdentity(deviceID))
		c.Next()
	}
}

// CurrentIdentity returns the identity the Identity middleware resolved.
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	val, exists := c.Get(identityKey)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := val.(models.Identity)
	return identity, ok
}
