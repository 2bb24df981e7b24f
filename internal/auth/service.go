package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elskow/authflow/internal/config"
	"github.com/elskow/authflow/internal/notify"
)

// maxCodeAttempts bounds the search for a verification code no other pending
// account currently holds.
const maxCodeAttempts = 5

type Service struct {
	config     *config.AuthConfig
	log        *zap.Logger
	repository Repository
	hasher     PasswordHasher
	tokens     *TokenIssuer
	codes      *CodeGenerator
	notifier   notify.Dispatcher
	clientURL  string
	now        func() time.Time

	verificationPolicy CodePolicy
	resetPolicy        CodePolicy
	dummyHash          string
}

func NewService(
	cfg *config.AuthConfig,
	clientURL string,
	log *zap.Logger,
	repo Repository,
	notifier notify.Dispatcher,
) *Service {
	hasher := NewBcryptHasher(cfg.BcryptCost)
	// Compared against when the email is unknown, so login timing does not
	// reveal whether an account exists.
	dummyHash, _ := hasher.Hash("not-a-real-password")

	return &Service{
		config:             cfg,
		log:                log,
		repository:         repo,
		hasher:             hasher,
		tokens:             NewTokenIssuer(cfg.JWTSecret, cfg.TokenExpiration),
		codes:              NewCodeGenerator(),
		notifier:           notifier,
		clientURL:          strings.TrimRight(clientURL, "/"),
		now:                time.Now,
		verificationPolicy: VerificationCodePolicy.WithTTL(cfg.VerificationCodeTTL),
		resetPolicy:        ResetTokenPolicy.WithTTL(cfg.ResetTokenTTL),
		dummyHash:          dummyHash,
	}
}

func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

func (s *Service) Signup(ctx context.Context, email, password, name string) (*User, *Session, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" || password == "" || name == "" {
		return nil, nil, validationError("all fields are required")
	}
	if !isValidEmail(email) {
		return nil, nil, validationError("invalid email format")
	}
	if err := s.validatePassword(password); err != nil {
		return nil, nil, err
	}

	if _, err := s.repository.GetUserByEmail(ctx, email); err == nil {
		return nil, nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, nil, upstream("failed to look up user", err)
	}

	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, err
	}

	code, err := s.uniqueVerificationCode(ctx)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	user := &User{
		ID:                        uuid.NewString(),
		Email:                     email,
		PasswordHash:              hashedPassword,
		Name:                      name,
		IsVerified:                false,
		VerificationCode:          &code.Value,
		VerificationCodeExpiresAt: &code.ExpiresAt,
		LastLoginAt:               now,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}

	if err := s.repository.CreateUser(ctx, user); err != nil {
		return nil, nil, upstream("failed to create user", err)
	}

	session, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, nil, upstream("failed to issue session token", err)
	}

	s.notify(ctx, notify.Message{
		Template: notify.TemplateVerification,
		To:       user.Email,
		Params:   map[string]string{notify.ParamVerificationCode: code.Value},
	})

	s.log.Info("user signed up", zap.String("user_id", user.ID))
	return user.Sanitized(), session, nil
}

func (s *Service) VerifyEmail(ctx context.Context, code string) (*User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, validationError("verification code is required")
	}

	user, err := s.repository.GetUserByVerificationCode(ctx, code, s.now())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, invalidOrExpired("invalid or expired verification code")
		}
		return nil, upstream("failed to look up verification code", err)
	}

	user.IsVerified = true
	user.VerificationCode = nil
	user.VerificationCodeExpiresAt = nil
	user.UpdatedAt = s.now()

	if err := s.repository.SaveUser(ctx, user); err != nil {
		return nil, upstream("failed to save user", err)
	}

	s.notify(ctx, notify.Message{
		Template: notify.TemplateWelcome,
		To:       user.Email,
		Params:   map[string]string{notify.ParamName: user.Name},
	})

	s.log.Info("email verified", zap.String("user_id", user.ID))
	return user.Sanitized(), nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*User, *Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, validationError("email and password are required")
	}

	user, err := s.repository.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, upstream("failed to look up user", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, nil, upstream("failed to issue session token", err)
	}

	now := s.now()
	user.LastLoginAt = now
	user.UpdatedAt = now
	if err := s.repository.SaveUser(ctx, user); err != nil {
		return nil, nil, upstream("failed to save user", err)
	}

	return user.Sanitized(), session, nil
}

// ForgotPassword returns ErrInvalidCredentials for unknown emails; whether
// that is shown to the client is the transport's decision.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return validationError("email is required")
	}

	user, err := s.repository.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return upstream("failed to look up user", err)
	}

	token, err := s.codes.Generate(s.resetPolicy)
	if err != nil {
		return upstream("failed to generate reset token", err)
	}

	tokenHash := hashToken(token.Value)
	user.ResetTokenHash = &tokenHash
	user.ResetTokenExpiresAt = &token.ExpiresAt
	user.UpdatedAt = s.now()

	if err := s.repository.SaveUser(ctx, user); err != nil {
		return upstream("failed to save user", err)
	}

	s.notify(ctx, notify.Message{
		Template: notify.TemplatePasswordReset,
		To:       user.Email,
		Params:   map[string]string{notify.ParamResetURL: s.resetURL(token.Value)},
	})

	s.log.Info("password reset requested", zap.String("user_id", user.ID))
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return invalidOrExpired("invalid or expired reset token")
	}
	if password == "" {
		return validationError("password is required")
	}
	if err := s.validatePassword(password); err != nil {
		return err
	}

	user, err := s.repository.GetUserByResetToken(ctx, hashToken(token), s.now())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return invalidOrExpired("invalid or expired reset token")
		}
		return upstream("failed to look up reset token", err)
	}

	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	user.PasswordHash = hashedPassword
	user.ResetTokenHash = nil
	user.ResetTokenExpiresAt = nil
	user.UpdatedAt = s.now()

	if err := s.repository.SaveUser(ctx, user); err != nil {
		return upstream("failed to save user", err)
	}

	s.notify(ctx, notify.Message{
		Template: notify.TemplateResetSuccess,
		To:       user.Email,
	})

	s.log.Info("password reset", zap.String("user_id", user.ID))
	return nil
}

func (s *Service) CheckAuth(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.repository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, upstream("failed to look up user", err)
	}
	return user.Sanitized(), nil
}

// notify is best-effort: the lifecycle operation has already committed, so a
// delivery failure is logged and never returned.
func (s *Service) notify(ctx context.Context, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Dispatch(ctx, msg); err != nil {
		s.log.Error("failed to dispatch notification",
			zap.String("template", string(msg.Template)),
			zap.Error(err))
	}
}

func (s *Service) uniqueVerificationCode(ctx context.Context) (Code, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := s.codes.Generate(s.verificationPolicy)
		if err != nil {
			return Code{}, upstream("failed to generate verification code", err)
		}

		_, err = s.repository.GetUserByVerificationCode(ctx, code.Value, s.now())
		if errors.Is(err, ErrUserNotFound) {
			return code, nil
		}
		if err != nil {
			return Code{}, upstream("failed to look up verification code", err)
		}
	}
	return Code{}, upstream("failed to generate verification code", errors.New("no unused code found"))
}

func (s *Service) validatePassword(password string) error {
	if len(password) < s.config.MinPasswordLength {
		return validationError("password is too short")
	}
	return nil
}

func (s *Service) resetURL(token string) string {
	return s.clientURL + "/reset-password/" + token
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
