package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/elskow/authflow/internal/config"
	"github.com/elskow/authflow/internal/notify"
)

const testClientURL = "http://localhost:5173"

func newTestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

func newTestConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:           "test-secret-key",
		TokenExpiration:     7 * 24 * time.Hour,
		CookieName:          "token",
		CookiePath:          "/api",
		BcryptCost:          bcrypt.MinCost,
		MinPasswordLength:   6,
		VerificationCodeTTL: 24 * time.Hour,
		ResetTokenTTL:       time.Hour,
		MaskUnknownEmail:    true,
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingDispatcher captures every message and fails when err is set.
type recordingDispatcher struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg notify.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	return d.err
}

func (d *recordingDispatcher) sent() []notify.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Message(nil), d.messages...)
}

func (d *recordingDispatcher) last() notify.Message {
	msgs := d.sent()
	if len(msgs) == 0 {
		return notify.Message{}
	}
	return msgs[len(msgs)-1]
}

type testFixture struct {
	service  *Service
	repo     Repository
	notifier *recordingDispatcher
	clock    *fakeClock
}

func newTestFixture(t *testing.T) *testFixture {
	return newTestFixtureWith(t, newTestConfig(), NewMemoryRepository())
}

func newTestFixtureWith(t *testing.T, cfg *config.AuthConfig, repo Repository) *testFixture {
	notifier := &recordingDispatcher{}
	clock := newFakeClock()

	svc := NewService(cfg, testClientURL, newTestLogger(t), repo, notifier)
	svc.now = clock.Now
	svc.tokens.now = clock.Now
	svc.codes.now = clock.Now

	return &testFixture{
		service:  svc,
		repo:     repo,
		notifier: notifier,
		clock:    clock,
	}
}

// signup registers a user and returns it with the code that was mailed.
func (f *testFixture) signup(t *testing.T, email, password, name string) (*User, string) {
	t.Helper()
	user, _, err := f.service.Signup(context.Background(), email, password, name)
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return user, f.notifier.last().Params[notify.ParamVerificationCode]
}

// constantReader yields the same byte forever.
type constantReader byte

func (r constantReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}
