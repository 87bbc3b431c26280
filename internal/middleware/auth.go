package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/voxus-chat/pkg/auth"
)

const (
	UserIDKey = "userID"
	TokenKey  = "token"
)

// AuthMiddleware checks the bearer token of API requests.
func AuthMiddleware(jwtManager *auth.JWTManager, blacklist *TokenBlacklist, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		authorize(c, token, jwtManager, blacklist, log)
	}
}

// WSAuthMiddleware also accepts the token as a query parameter, since browsers
// cannot set headers on a websocket handshake.
func WSAuthMiddleware(jwtManager *auth.JWTManager, blacklist *TokenBlacklist, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
					token = parts[1]
				}
			}
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		authorize(c, token, jwtManager, blacklist, log)
	}
}

func authorize(c *gin.Context, token string, jwtManager *auth.JWTManager, blacklist *TokenBlacklist, log *zap.Logger) {
	if blacklist != nil {
		revoked, err := blacklist.IsRevoked(c.Request.Context(), token)
		if err != nil {
			// fail closed: a token we cannot check is not accepted
			log.Error("blacklist_lookup_failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token could not be verified"})
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is blacklisted"})
			return
		}
	}

	userID, err := jwtManager.UserID(token)
	if err != nil {
		log.Debug("token_rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	c.Set(UserIDKey, userID)
	c.Set(TokenKey, token)
	c.Next()
}

// CurrentUserID returns the id set by the auth middleware.
func CurrentUserID(c *gin.Context) uint64 {
	return c.MustGet(UserIDKey).(uint64)
}
