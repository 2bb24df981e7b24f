package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := newFakeClock().Now()
	expires := now.Add(time.Hour)

	user := &User{
		ID:                        "user-1",
		Email:                     "alice@example.com",
		Name:                      "Alice",
		VerificationCode:          strPtr("123456"),
		VerificationCodeExpiresAt: &expires,
	}
	require.NoError(t, repo.CreateUser(ctx, user))

	t.Run("duplicate email", func(t *testing.T) {
		err := repo.CreateUser(ctx, &User{ID: "user-2", Email: "alice@example.com"})
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("lookups", func(t *testing.T) {
		byID, err := repo.GetUserByID(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", byID.Name)

		byEmail, err := repo.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "user-1", byEmail.ID)

		_, err = repo.GetUserByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("verification code honours expiry", func(t *testing.T) {
		found, err := repo.GetUserByVerificationCode(ctx, "123456", now)
		require.NoError(t, err)
		assert.Equal(t, "user-1", found.ID)

		_, err = repo.GetUserByVerificationCode(ctx, "123456", expires)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("returned users are copies", func(t *testing.T) {
		found, err := repo.GetUserByID(ctx, "user-1")
		require.NoError(t, err)
		*found.VerificationCode = "999999"
		found.Name = "Mallory"

		again, err := repo.GetUserByID(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", again.Name)
		assert.Equal(t, "123456", *again.VerificationCode)
	})

	t.Run("save updates indexes", func(t *testing.T) {
		found, err := repo.GetUserByID(ctx, "user-1")
		require.NoError(t, err)
		found.Email = "alice@new.example.com"
		found.ResetTokenHash = strPtr("hash")
		found.ResetTokenExpiresAt = &expires
		require.NoError(t, repo.SaveUser(ctx, found))

		_, err = repo.GetUserByEmail(ctx, "alice@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)

		byToken, err := repo.GetUserByResetToken(ctx, "hash", now)
		require.NoError(t, err)
		assert.Equal(t, "alice@new.example.com", byToken.Email)
	})

	t.Run("save unknown user", func(t *testing.T) {
		err := repo.SaveUser(ctx, &User{ID: "ghost", Email: "ghost@example.com"})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("save cannot steal another email", func(t *testing.T) {
		require.NoError(t, repo.CreateUser(ctx, &User{ID: "user-3", Email: "bob@example.com"}))
		bob, err := repo.GetUserByID(ctx, "user-3")
		require.NoError(t, err)
		bob.Email = "alice@new.example.com"
		assert.ErrorIs(t, repo.SaveUser(ctx, bob), ErrUserExists)
	})
}
