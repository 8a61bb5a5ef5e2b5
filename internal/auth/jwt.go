package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidJWTToken = errors.New("session token is invalid")
	ErrExpiredJWTToken = errors.New("session token is expired")
)

const (
	sessionIssuer  = "expense-tracker"
	sessionKeyInfo = "expense-tracker session signing key v1"
	sessionKeySize = 32
)

type SessionTokenManager interface {
	Mint(principal Principal, userID string, ttl time.Duration) (string, *SessionClaims, error)
	Parse(tokenString string) (*SessionClaims, error)
}

// SessionClaims is the payload of the session cookie. Subject is the
// identity-provider uid, Id is the session id.
type SessionClaims struct {
	UserID        string `json:"uid_internal"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	IssuedAtMs    int64  `json:"iat_ms"`
	jwt.StandardClaims
}

func (c *SessionClaims) Principal() Principal {
	return Principal{
		UID:           c.Subject,
		Email:         c.Email,
		Name:          c.Name,
		Picture:       c.Picture,
		PhoneNumber:   c.PhoneNumber,
		EmailVerified: c.EmailVerified,
	}
}

type JWTManager struct {
	key []byte
	now func() time.Time
}

// NewJWTManager derives the HS256 signing key from secret with HKDF-SHA256.
func NewJWTManager(secret string) (*JWTManager, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}

	key := make([]byte, sessionKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sessionKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}

	return &JWTManager{
		key: key,
		now: time.Now,
	}, nil
}

func (j *JWTManager) Mint(principal Principal, userID string, ttl time.Duration) (string, *SessionClaims, error) {
	if principal.UID == "" || userID == "" {
		return "", nil, ErrInvalidJWTToken
	}

	now := j.now()
	claims := &SessionClaims{
		UserID:        userID,
		Email:         principal.Email,
		Name:          principal.Name,
		Picture:       principal.Picture,
		PhoneNumber:   principal.PhoneNumber,
		EmailVerified: principal.EmailVerified,
		IssuedAtMs:    now.UnixMilli(),
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Issuer:    sessionIssuer,
			Subject:   principal.UID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.key)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (j *JWTManager) Parse(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return j.key, nil
	})

	if err != nil {
		var validationErr *jwt.ValidationError
		if errors.As(err, &validationErr) {
			if validationErr.Errors&(jwt.ValidationErrorExpired) != 0 {
				return nil, ErrExpiredJWTToken
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidJWTToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" || claims.UserID == "" || claims.Issuer != sessionIssuer {
		return nil, ErrInvalidJWTToken
	}

	return claims, nil
}
