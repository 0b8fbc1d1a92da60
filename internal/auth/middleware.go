package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"yamdb/internal/access"
	"yamdb/internal/apperr"
)

const CtxUserIDKey = "user_id"
const CtxUsernameKey = "username"
const CtxRequesterKey = "requester"

// IdentityLoader resolves a token's user id to the user's current role and flags.
type IdentityLoader interface {
	Requester(ctx context.Context, userID int64) (access.Requester, error)
}

// Authenticate resolves an optional bearer token. Requests without an
// Authorization header continue as anonymous; a header that does not carry
// a valid token for an existing user is rejected.
func Authenticate(secret []byte, loader IdentityLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.Set(CtxRequesterKey, access.Anonymous())
			c.Next()
			return
		}
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing bearer token"})
			return
		}
		claims, err := ParseJWT(secret, strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid token"})
			return
		}
		who, err := loader.Requester(c.Request.Context(), claims.UserID)
		if errors.Is(err, apperr.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "user not found"})
			return
		}
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Int64("user_id", claims.UserID).Msg("load requester failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
			return
		}
		c.Set(CtxRequesterKey, who)
		c.Set(CtxUserIDKey, who.UserID)
		c.Set(CtxUsernameKey, who.Username)
		c.Next()
	}
}

// RequesterFrom returns the requester set by Authenticate, or anonymous.
func RequesterFrom(c *gin.Context) access.Requester {
	if v, ok := c.Get(CtxRequesterKey); ok {
		if who, ok := v.(access.Requester); ok {
			return who
		}
	}
	return access.Anonymous()
}
