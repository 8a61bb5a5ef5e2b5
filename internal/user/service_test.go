package user

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	users      map[string]*User
	shouldFail bool
	nextID     int
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[string]*User)}
}

func (m *mockRepository) Upsert(_ context.Context, u *User) error {
	if m.shouldFail {
		return errors.New("store unavailable")
	}
	if existing, ok := m.users[u.FirebaseUID]; ok {
		if u.Email != "" {
			existing.Email = u.Email
		}
		if u.Name != "" {
			existing.Name = u.Name
		}
		*u = *existing
		return nil
	}
	m.nextID++
	u.ID = "00000000-0000-0000-0000-00000000000" + string(rune('0'+m.nextID))
	stored := *u
	m.users[u.FirebaseUID] = &stored
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) GetByFirebaseUID(_ context.Context, firebaseUID string) (*User, error) {
	if u, ok := m.users[firebaseUID]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func TestRegister_IsIdempotentPerFirebaseUID(t *testing.T) {
	repo := newMockRepository()
	svc := NewUserService(repo)

	first, err := svc.Register(context.Background(), "fb-1", "ann@example.com", "Ann", "")
	require.NoError(t, err)
	second, err := svc.Register(context.Background(), "fb-1", "ann@example.com", "", "")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ann", second.Name)
	assert.Len(t, repo.users, 1)
}

func TestRegister_RequiresFirebaseUID(t *testing.T) {
	svc := NewUserService(newMockRepository())

	_, err := svc.Register(context.Background(), "  ", "ann@example.com", "Ann", "")
	assert.ErrorIs(t, err, ErrMissingFirebaseUID)
}

func TestRegister_StoreFailure(t *testing.T) {
	repo := newMockRepository()
	repo.shouldFail = true
	svc := NewUserService(repo)

	_, err := svc.Register(context.Background(), "fb-1", "", "", "")
	assert.Error(t, err)
}

func TestGetUserByID_RejectsMalformedID(t *testing.T) {
	svc := NewUserService(newMockRepository())

	_, err := svc.GetUserByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUserByID_Found(t *testing.T) {
	repo := newMockRepository()
	svc := NewUserService(repo)

	created, err := svc.Register(context.Background(), "fb-9", "", "Zed", "")
	require.NoError(t, err)

	got, err := svc.GetUserByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Zed", got.Name)
}
