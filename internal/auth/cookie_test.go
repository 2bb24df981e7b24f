package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elskow/authflow/internal/config"
)

func TestSessionCookie_Set(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		cfg      config.AuthConfig
		wantName string
		wantPath string
	}{
		{
			name:     "unset fields stay scoped to the api",
			cfg:      config.AuthConfig{TokenExpiration: time.Hour},
			wantName: "token",
			wantPath: "/api",
		},
		{
			name:     "configured",
			cfg:      config.AuthConfig{CookieName: "sid", CookiePath: "/api/auth", TokenExpiration: time.Hour},
			wantName: "sid",
			wantPath: "/api/auth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			NewSessionCookie(&tt.cfg).Set(c, &Session{Token: "jwt"})

			cookies := w.Result().Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, tt.wantName, cookies[0].Name)
			assert.Equal(t, tt.wantPath, cookies[0].Path)
			assert.Equal(t, 3600, cookies[0].MaxAge)
			assert.True(t, cookies[0].HttpOnly)
			assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
		})
	}
}
