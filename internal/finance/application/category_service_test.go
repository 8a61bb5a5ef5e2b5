package application

import (
	"context"
	"testing"

	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/ExpenseTracker/internal/finance/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCategoryRepository struct {
	created []domain.Category
	byUser  []string
}

func (f *fakeCategoryRepository) FindSystem(context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: 1, Name: "Food & Dining", IsSystem: true}}, nil
}

func (f *fakeCategoryRepository) FindByUser(_ context.Context, userID string) ([]domain.Category, error) {
	f.byUser = append(f.byUser, userID)
	return []domain.Category{}, nil
}

func (f *fakeCategoryRepository) Create(_ context.Context, category *domain.Category) error {
	category.ID = int64(100 + len(f.created))
	f.created = append(f.created, *category)
	return nil
}

func (f *fakeCategoryRepository) IsVisibleToUser(context.Context, int64, string) (bool, error) {
	return true, nil
}

func TestCreateCategory_OwnedByCaller(t *testing.T) {
	repo := &fakeCategoryRepository{}
	service := NewCategoryService(repo)

	other := bobID
	category := &domain.Category{Name: "Gym", Type: domain.TypeExpense, UserID: &other, IsSystem: true}
	require.NoError(t, service.CreateCategory(context.Background(), annID, category))

	require.Len(t, repo.created, 1)
	assert.Equal(t, annID, *repo.created[0].UserID)
	assert.False(t, repo.created[0].IsSystem)
	assert.Equal(t, int64(100), category.ID)
}

func TestCreateCategory_Validation(t *testing.T) {
	repo := &fakeCategoryRepository{}
	service := NewCategoryService(repo)

	err := service.CreateCategory(context.Background(), annID, &domain.Category{Type: domain.TypeExpense})
	assert.True(t, financeErrors.IsValidationError(err))
	assert.Empty(t, repo.created)
}

func TestGetUserCategories_MalformedUserID(t *testing.T) {
	repo := &fakeCategoryRepository{}
	service := NewCategoryService(repo)

	categories, err := service.GetUserCategories(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, categories)
	assert.Empty(t, repo.byUser)
}

func TestIsCategoryVisible_RejectsNonPositiveID(t *testing.T) {
	service := NewCategoryService(&fakeCategoryRepository{})

	visible, err := service.IsCategoryVisible(context.Background(), 0, annID)
	require.NoError(t, err)
	assert.False(t, visible)
}
