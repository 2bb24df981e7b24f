package auth

import (
	"time"
)

type User struct {
	ID                        string     `gorm:"primaryKey;type:uuid" bson:"_id" json:"id"`
	Email                     string     `gorm:"uniqueIndex;not null" bson:"email" json:"email"`
	PasswordHash              string     `gorm:"not null" bson:"passwordHash" json:"-"`
	Name                      string     `gorm:"not null" bson:"name" json:"name"`
	IsVerified                bool       `gorm:"not null;default:false" bson:"isVerified" json:"isVerified"`
	VerificationCode          *string    `gorm:"index" bson:"verificationCode,omitempty" json:"-"`
	VerificationCodeExpiresAt *time.Time `bson:"verificationCodeExpiresAt,omitempty" json:"-"`
	ResetTokenHash            *string    `gorm:"index" bson:"resetTokenHash,omitempty" json:"-"`
	ResetTokenExpiresAt       *time.Time `bson:"resetTokenExpiresAt,omitempty" json:"-"`
	LastLoginAt               time.Time  `gorm:"not null" bson:"lastLoginAt" json:"lastLogin"`
	CreatedAt                 time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt                 time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// Clone returns a deep copy so callers never share nullable fields.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.VerificationCode = cloneString(u.VerificationCode)
	c.VerificationCodeExpiresAt = cloneTime(u.VerificationCodeExpiresAt)
	c.ResetTokenHash = cloneString(u.ResetTokenHash)
	c.ResetTokenExpiresAt = cloneTime(u.ResetTokenExpiresAt)
	return &c
}

// Sanitized returns a copy without the password hash or reset token.
func (u *User) Sanitized() *User {
	c := u.Clone()
	if c == nil {
		return nil
	}
	c.PasswordHash = ""
	c.ResetTokenHash = nil
	c.ResetTokenExpiresAt = nil
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
