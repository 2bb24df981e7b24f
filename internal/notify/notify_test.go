package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return s.err
}

func (s *recordingSender) sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr error
	}{
		{
			name: "verification",
			msg:  Message{Template: TemplateVerification, To: "a@example.com"},
		},
		{
			name: "reset success",
			msg:  Message{Template: TemplateResetSuccess, To: "a@example.com"},
		},
		{
			name:    "no recipient",
			msg:     Message{Template: TemplateWelcome},
			wantErr: ErrNoRecipient,
		},
		{
			name:    "unknown template",
			msg:     Message{Template: "newsletter", To: "a@example.com"},
			wantErr: ErrUnknownTemplate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.msg.Validate(), tt.wantErr)
		})
	}
}

func TestInlineDispatcher(t *testing.T) {
	sender := &recordingSender{}
	d := NewInlineDispatcher(sender)

	msg := Message{Template: TemplateWelcome, To: "a@example.com", Params: map[string]string{ParamName: "Alice"}}
	require.NoError(t, d.Dispatch(context.Background(), msg))
	assert.Equal(t, []Message{msg}, sender.sent())

	assert.ErrorIs(t, d.Dispatch(context.Background(), Message{Template: TemplateWelcome}), ErrNoRecipient)
	assert.Len(t, sender.sent(), 1)

	sender.err = errors.New("provider down")
	assert.EqualError(t, d.Dispatch(context.Background(), msg), "provider down")
}

func TestRender(t *testing.T) {
	tests := []struct {
		name        string
		msg         Message
		wantSubject string
		wantBody    string
	}{
		{
			name:        "verification code",
			msg:         Message{Template: TemplateVerification, Params: map[string]string{ParamVerificationCode: "482913"}},
			wantSubject: "Verify your email",
			wantBody:    "<h1>482913</h1>",
		},
		{
			name:        "reset link",
			msg:         Message{Template: TemplatePasswordReset, Params: map[string]string{ParamResetURL: "http://localhost:5173/reset-password/abc"}},
			wantSubject: "Reset your password",
			wantBody:    `href="http://localhost:5173/reset-password/abc"`,
		},
		{
			name:        "name is escaped",
			msg:         Message{Template: TemplateWelcome, Params: map[string]string{ParamName: "<script>"}},
			wantSubject: "Welcome",
			wantBody:    "&lt;script&gt;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, category, html, err := render(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, subject)
			assert.NotEmpty(t, category)
			assert.Contains(t, html, tt.wantBody)
		})
	}

	_, _, _, err := render(Message{Template: "unknown"})
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))

	err := s.Send(context.Background(), Message{
		Template: TemplateVerification,
		To:       "a@example.com",
		Params:   map[string]string{ParamVerificationCode: "123456"},
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("notification delivered to log").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "verification", fields["template"])
	assert.Equal(t, "a@example.com", fields["to"])
	assert.Equal(t, []interface{}{ParamVerificationCode}, fields["params"])

	assert.ErrorIs(t, s.Send(context.Background(), Message{Template: TemplateVerification}), ErrNoRecipient)
}

func TestLogSender_KeepsSecretsOutOfInfo(t *testing.T) {
	const resetURL = "http://localhost:5173/reset-password/deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

	tests := []struct {
		name   string
		msg    Message
		secret string
	}{
		{
			name: "reset link",
			msg: Message{
				Template: TemplatePasswordReset,
				To:       "a@example.com",
				Params:   map[string]string{ParamResetURL: resetURL},
			},
			secret: "deadbeef",
		},
		{
			name: "verification code",
			msg: Message{
				Template: TemplateVerification,
				To:       "a@example.com",
				Params:   map[string]string{ParamVerificationCode: "482913"},
			},
			secret: "482913",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			require.NoError(t, NewLogSender(zap.New(core)).Send(context.Background(), tt.msg))

			require.NotEmpty(t, logs.All())
			for _, entry := range logs.All() {
				assert.NotContains(t, entry.Message, tt.secret)
				for _, v := range entry.ContextMap() {
					assert.NotContains(t, fmt.Sprint(v), tt.secret)
				}
			}
		})
	}
}
