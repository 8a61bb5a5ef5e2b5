package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrMissingFirebaseUID = errors.New("firebase uid is required")
)

// User is the internal record bound to one identity-provider account.
type User struct {
	ID          string    `json:"id"`
	FirebaseUID string    `json:"firebase_uid"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Service interface {
	Register(ctx context.Context, firebaseUID, email, name, avatarURL string) (*User, error)
	GetUserByID(ctx context.Context, userID string) (*User, error)
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error)
}

type service struct {
	repo Repository
}

func NewUserService(repo Repository) Service {
	return &service{
		repo: repo,
	}
}

// Register creates the user on first sight of firebaseUID and refreshes the
// profile fields afterwards.
func (s *service) Register(ctx context.Context, firebaseUID, email, name, avatarURL string) (*User, error) {
	firebaseUID = strings.TrimSpace(firebaseUID)
	if firebaseUID == "" {
		return nil, ErrMissingFirebaseUID
	}

	u := &User{
		FirebaseUID: firebaseUID,
		Email:       strings.TrimSpace(email),
		Name:        strings.TrimSpace(name),
		AvatarURL:   strings.TrimSpace(avatarURL),
	}
	if err := s.repo.Upsert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrUserNotFound
	}
	return s.repo.GetByID(ctx, userID)
}

func (s *service) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error) {
	if firebaseUID == "" {
		return nil, ErrUserNotFound
	}
	return s.repo.GetByFirebaseUID(ctx, firebaseUID)
}
