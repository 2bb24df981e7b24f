package auth

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// GetUserByVerificationCode only matches codes whose expiry is after now.
	GetUserByVerificationCode(ctx context.Context, code string, now time.Time) (*User, error)
	// GetUserByResetToken only matches token hashes whose expiry is after now.
	GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	SaveUser(ctx context.Context, user *User) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateUser(ctx context.Context, user *User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}
	return err
}

func (r *repository) GetUserByID(ctx context.Context, id string) (*User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *repository) GetUserByVerificationCode(ctx context.Context, code string, now time.Time) (*User, error) {
	return r.first(ctx, "verification_code = ? AND verification_code_expires_at > ?", code, now)
}

func (r *repository) GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error) {
	return r.first(ctx, "reset_token_hash = ? AND reset_token_expires_at > ?", tokenHash, now)
}

func (r *repository) SaveUser(ctx context.Context, user *User) error {
	err := r.db.WithContext(ctx).Save(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}
	return err
}

func (r *repository) first(ctx context.Context, query string, args ...interface{}) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
