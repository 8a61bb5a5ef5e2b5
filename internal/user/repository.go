package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Repository interface {
	Upsert(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) Repository {
	return &userRepository{
		db: db,
	}
}

// Upsert inserts the user or refreshes its profile fields when firebase_uid is
// already known. Empty incoming fields keep the stored value.
func (r *userRepository) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (firebase_uid, email, name, avatar_url, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NOW(), NOW())
		ON CONFLICT (firebase_uid) DO UPDATE
		SET email = COALESCE(EXCLUDED.email, users.email),
			name = COALESCE(EXCLUDED.name, users.name),
			avatar_url = COALESCE(EXCLUDED.avatar_url, users.avatar_url),
			updated_at = NOW()
		RETURNING id, email, name, avatar_url, created_at, updated_at
	`
	var email, name, avatarURL sql.NullString
	err := r.db.QueryRowContext(ctx, query, user.FirebaseUID, user.Email, user.Name, user.AvatarURL).
		Scan(&user.ID, &email, &name, &avatarURL, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not upsert user: %w", err)
	}

	user.Email = email.String
	user.Name = name.String
	user.AvatarURL = avatarURL.String
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, firebase_uid, email, name, avatar_url, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error) {
	query := `
		SELECT id, firebase_uid, email, name, avatar_url, created_at, updated_at
		FROM users
		WHERE firebase_uid = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, firebaseUID))
}

func (r *userRepository) scanOne(row *sql.Row) (*User, error) {
	var user User
	var email, name, avatarURL sql.NullString
	err := row.Scan(&user.ID, &user.FirebaseUID, &email, &name, &avatarURL, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not get user: %w", err)
	}
	user.Email = email.String
	user.Name = name.String
	user.AvatarURL = avatarURL.String
	return &user, nil
}
