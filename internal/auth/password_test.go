package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "valid password", password: "testpassword123"},
		{name: "unicode password", password: "pässwörd-✓"},
		{name: "too long", password: strings.Repeat("x", 73), wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.True(t, h.Verify(tt.password, hash))
			assert.False(t, h.Verify(tt.password+"x", hash))
		})
	}
}

func TestBcryptHasher_SaltsEachHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	a, err := h.Hash("secret1")
	require.NoError(t, err)
	b, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewBcryptHasher_CostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
	assert.False(t, NewBcryptHasher(bcrypt.MinCost).Verify("x", "not-a-hash"))
}
