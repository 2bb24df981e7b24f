package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elskow/authflow/internal/api"
	"github.com/elskow/authflow/internal/config"
)

// SessionCookie carries the session token between browser and API.
type SessionCookie struct {
	name   string
	path   string
	secure bool
	maxAge time.Duration
}

func NewSessionCookie(cfg *config.AuthConfig) *SessionCookie {
	name := cfg.CookieName
	if name == "" {
		name = "token"
	}
	path := cfg.CookiePath
	if path == "" {
		path = api.Prefix
	}
	return &SessionCookie{
		name:   name,
		path:   path,
		secure: cfg.CookieSecure,
		maxAge: cfg.TokenExpiration,
	}
}

// Set lives as long as the token itself.
func (s *SessionCookie) Set(c *gin.Context, session *Session) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(s.name, session.Token, int(s.maxAge.Seconds()), s.path, "", s.secure, true)
}

func (s *SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(s.name, "", -1, s.path, "", s.secure, true)
}

// Read returns the raw token, or "" when the cookie is absent.
func (s *SessionCookie) Read(c *gin.Context) string {
	value, err := c.Cookie(s.name)
	if err != nil {
		return ""
	}
	return value
}
