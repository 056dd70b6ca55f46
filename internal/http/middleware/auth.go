package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatwire.app/server/common/logger"
	"chatwire.app/server/internal/auth"
	"chatwire.app/server/internal/model"
	"chatwire.app/server/internal/store"
)

const userKey = "currentUser"

// Auth validates the bearer token on every request and loads the
// authenticated user into the gin context.
func Auth(verifier auth.Verifier, users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			return
		}

		ctx := c.Request.Context()

		userID, err := verifier.Verify(ctx, token)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				slog.ErrorContext(ctx, "token verification failed", "error", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		user, err := users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
				return
			}
			slog.ErrorContext(ctx, "failed to load authenticated user", "error", err, "user_id", userID)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(userID)})
		c.Request = c.Request.WithContext(ctx)
		SetCurrentUser(c, user)

		c.Next()
	}
}

// SetCurrentUser stores the authenticated user on the context. Exposed for
// handler tests.
func SetCurrentUser(c *gin.Context, user *model.User) {
	c.Set(userKey, user)
}

// CurrentUser returns the authenticated user set by Auth. The second
// return is false on routes that skipped the middleware.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(c.Query("token"))
}
