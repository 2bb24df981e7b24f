package auth

import (
	"context"
	"sync"
	"time"
)

// memoryRepository keeps users in process memory. It backs the "memory"
// database driver and the package tests.
type memoryRepository struct {
	users        map[string]*User
	usersByEmail map[string]*User
	mu           sync.RWMutex
}

func NewMemoryRepository() Repository {
	return &memoryRepository{
		users:        make(map[string]*User),
		usersByEmail: make(map[string]*User),
	}
}

func (r *memoryRepository) CreateUser(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.ID]; exists {
		return ErrUserExists
	}
	if _, exists := r.usersByEmail[user.Email]; exists {
		return ErrUserExists
	}

	// Clone the user to prevent external modifications
	stored := user.Clone()
	r.users[stored.ID] = stored
	r.usersByEmail[stored.Email] = stored
	return nil
}

func (r *memoryRepository) GetUserByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}
	return user.Clone(), nil
}

func (r *memoryRepository) GetUserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.usersByEmail[email]
	if !exists {
		return nil, ErrUserNotFound
	}
	return user.Clone(), nil
}

func (r *memoryRepository) GetUserByVerificationCode(_ context.Context, code string, now time.Time) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.VerificationCode == nil || *u.VerificationCode != code {
			continue
		}
		if u.VerificationCodeExpiresAt != nil && u.VerificationCodeExpiresAt.After(now) {
			return u.Clone(), nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memoryRepository) GetUserByResetToken(_ context.Context, tokenHash string, now time.Time) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.ResetTokenHash == nil || *u.ResetTokenHash != tokenHash {
			continue
		}
		if u.ResetTokenExpiresAt != nil && u.ResetTokenExpiresAt.After(now) {
			return u.Clone(), nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memoryRepository) SaveUser(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.users[user.ID]
	if !exists {
		return ErrUserNotFound
	}
	if other, taken := r.usersByEmail[user.Email]; taken && other.ID != user.ID {
		return ErrUserExists
	}

	stored := user.Clone()
	delete(r.usersByEmail, existing.Email)
	r.users[stored.ID] = stored
	r.usersByEmail[stored.Email] = stored
	return nil
}
