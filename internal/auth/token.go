package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Session is a freshly issued session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (t *TokenIssuer) Issue(userID string) (*Session, error) {
	if userID == "" {
		return nil, errors.New("user id is required to issue a token")
	}

	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return nil, err
	}

	return &Session{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify returns the subject of a valid token. Every failure, whether
// malformed, expired, wrongly signed or missing a subject, is ErrInvalidToken.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.UserID == "" || claims.Subject != claims.UserID {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}
