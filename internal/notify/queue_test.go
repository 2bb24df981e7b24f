package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/elskow/authflow/internal/config"
)

func TestNewSendTask(t *testing.T) {
	msg := Message{Template: TemplatePasswordReset, To: "a@example.com", Params: map[string]string{ParamResetURL: "http://x/reset-password/abc"}}

	task, err := newSendTask(msg)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeSend, task.Type())

	var decoded Message
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, msg, decoded)

	_, err = newSendTask(Message{Template: TemplatePasswordReset})
	assert.ErrorIs(t, err, ErrNoRecipient)
}

func TestQueueWorker_HandleTask(t *testing.T) {
	sender := &recordingSender{}
	w := &QueueWorker{sender: sender, log: zaptest.NewLogger(t)}

	task, err := newSendTask(Message{Template: TemplateWelcome, To: "a@example.com"})
	require.NoError(t, err)

	require.NoError(t, w.HandleTask(context.Background(), task))
	require.Len(t, sender.sent(), 1)
	assert.Equal(t, "a@example.com", sender.sent()[0].To)
}

func TestQueueWorker_HandleTaskRetries(t *testing.T) {
	sender := &recordingSender{err: errors.New("provider down")}
	w := &QueueWorker{sender: sender, log: zaptest.NewLogger(t)}

	task, err := newSendTask(Message{Template: TemplateWelcome, To: "a@example.com"})
	require.NoError(t, err)

	err = w.HandleTask(context.Background(), task)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestQueueWorker_HandleTaskSkipsBadPayloads(t *testing.T) {
	sender := &recordingSender{}
	w := &QueueWorker{sender: sender, log: zaptest.NewLogger(t)}

	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "not json", payload: []byte("{")},
		{name: "no recipient", payload: []byte(`{"template":"welcome"}`)},
		{name: "unknown template", payload: []byte(`{"template":"newsletter","to":"a@example.com"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.HandleTask(context.Background(), asynq.NewTask(TaskTypeSend, tt.payload))
			assert.ErrorIs(t, err, asynq.SkipRetry)
		})
	}
	assert.Empty(t, sender.sent())
}

func TestNewQueueDispatcher_InvalidURL(t *testing.T) {
	_, err := NewQueueDispatcher(config.QueueConfig{RedisURL: "://nope", Name: "notifications"})
	assert.Error(t, err)

	_, err = NewQueueWorker(config.QueueConfig{RedisURL: "://nope", Name: "notifications"}, &recordingSender{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
