package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/elskow/authflow/internal/config"
)

func newMailtrapServer(t *testing.T, status int, response string) (*httptest.Server, *mailtrapRequest, *http.Header) {
	t.Helper()
	var got mailtrapRequest
	var headers http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &got, &headers
}

func testMailtrapConfig(endpoint string) config.MailtrapConfig {
	return config.MailtrapConfig{
		Endpoint:    endpoint,
		Token:       "mt-token",
		SenderEmail: "hello@demomailtrap.com",
		SenderName:  "Auth",
		CompanyName: "Our New Company",
		Templates:   map[string]string{"welcome": "f353dfa9-a784-46a5-928f-3f5f7e5ba74e"},
		Timeout:     5 * time.Second,
	}
}

func TestMailtrapSender_RendersLocally(t *testing.T) {
	srv, got, headers := newMailtrapServer(t, http.StatusOK, `{"success":true,"message_ids":["1"]}`)
	s := NewMailtrapSender(testMailtrapConfig(srv.URL), srv.Client(), zaptest.NewLogger(t))

	err := s.Send(context.Background(), Message{
		Template: TemplateVerification,
		To:       "alice@example.com",
		Params:   map[string]string{ParamVerificationCode: "482913"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer mt-token", headers.Get("Authorization"))
	assert.Equal(t, "hello@demomailtrap.com", got.From.Email)
	require.Len(t, got.To, 1)
	assert.Equal(t, "alice@example.com", got.To[0].Email)
	assert.Equal(t, "Verify your email", got.Subject)
	assert.Equal(t, "Email Verification", got.Category)
	assert.Contains(t, got.HTML, "482913")
	assert.Empty(t, got.TemplateUUID)
}

func TestMailtrapSender_UsesHostedTemplate(t *testing.T) {
	srv, got, _ := newMailtrapServer(t, http.StatusOK, `{"success":true,"message_ids":["1"]}`)
	s := NewMailtrapSender(testMailtrapConfig(srv.URL), srv.Client(), zaptest.NewLogger(t))

	err := s.Send(context.Background(), Message{
		Template: TemplateWelcome,
		To:       "alice@example.com",
		Params:   map[string]string{ParamName: "Alice"},
	})
	require.NoError(t, err)

	assert.Equal(t, "f353dfa9-a784-46a5-928f-3f5f7e5ba74e", got.TemplateUUID)
	assert.Equal(t, map[string]string{
		"company_info_name": "Our New Company",
		"name":              "Alice",
	}, got.TemplateVariables)
	assert.Empty(t, got.HTML)
	assert.Empty(t, got.Subject)
}

func TestMailtrapSender_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
	}{
		{name: "server error", status: http.StatusInternalServerError, response: `{"errors":["boom"]}`},
		{name: "unauthorized", status: http.StatusUnauthorized, response: `{"success":false,"errors":["Unauthorized"]}`},
		{name: "not successful", status: http.StatusOK, response: `{"success":false,"errors":["bad sender"]}`},
		{name: "not json", status: http.StatusOK, response: `ok`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newMailtrapServer(t, tt.status, tt.response)
			s := NewMailtrapSender(testMailtrapConfig(srv.URL), srv.Client(), zaptest.NewLogger(t))

			err := s.Send(context.Background(), Message{Template: TemplateResetSuccess, To: "alice@example.com"})
			assert.Error(t, err)
		})
	}
}

func TestMailtrapSender_InvalidMessageIsNotSent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	t.Cleanup(srv.Close)

	s := NewMailtrapSender(testMailtrapConfig(srv.URL), srv.Client(), zaptest.NewLogger(t))
	err := s.Send(context.Background(), Message{Template: TemplateWelcome})
	assert.ErrorIs(t, err, ErrNoRecipient)
	assert.Zero(t, calls)
}
