package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware_RequireSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	clock := newFakeClock()
	tokens := NewTokenIssuer("test-secret-key", time.Hour)
	tokens.now = clock.Now
	cookie := NewSessionCookie(newTestConfig())
	m := NewAuthMiddleware(tokens, cookie)

	router := gin.New()
	router.GET("/protected", m.RequireSession(), func(c *gin.Context) {
		userID, err := GetUserFromContext(c)
		require.NoError(t, err)
		c.String(http.StatusOK, userID)
	})

	session, err := tokens.Issue("user-1")
	require.NoError(t, err)

	tests := []struct {
		name       string
		cookie     *http.Cookie
		advance    time.Duration
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid session",
			cookie:     &http.Cookie{Name: "token", Value: session.Token},
			wantStatus: http.StatusOK,
			wantBody:   "user-1",
		},
		{
			name:       "missing cookie",
			wantStatus: http.StatusUnauthorized,
			wantBody:   "no token provided",
		},
		{
			name:       "cookie with another name",
			cookie:     &http.Cookie{Name: "session", Value: session.Token},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "no token provided",
		},
		{
			name:       "tampered token",
			cookie:     &http.Cookie{Name: "token", Value: session.Token + "x"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "invalid token",
		},
		{
			name:       "expired token",
			cookie:     &http.Cookie{Name: "token", Value: session.Token},
			advance:    2 * time.Hour,
			wantStatus: http.StatusUnauthorized,
			wantBody:   "invalid token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.Advance(tt.advance)
			t.Cleanup(func() { clock.Advance(-tt.advance) })

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestGetUserFromContext_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetUserFromContext(c)
	assert.Error(t, err)
}
