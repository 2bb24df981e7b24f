package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// UserContextKey is the gin context key holding the authenticated user id
	UserContextKey = "userId"
)

type AuthMiddleware struct {
	tokens *TokenIssuer
	cookie *SessionCookie
}

func NewAuthMiddleware(tokens *TokenIssuer, cookie *SessionCookie) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		cookie: cookie,
	}
}

// RequireSession rejects requests without a valid session cookie and stores
// the user id for downstream handlers.
func (m *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.cookie.Read(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Unauthorized - no token provided",
			})
			return
		}

		userID, err := m.tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Unauthorized - invalid token",
			})
			return
		}

		c.Set(UserContextKey, userID)
		c.Next()
	}
}

// Helper function to get the user id from the request context
func GetUserFromContext(c *gin.Context) (string, error) {
	userID := c.GetString(UserContextKey)
	if userID == "" {
		return "", errors.New("user not found in context")
	}
	return userID, nil
}
