package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/ExpenseTracker/internal/finance/errors"
)

type CategoryService struct {
	repo domain.CategoryRepository
}

func NewCategoryService(repo domain.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) GetSystemCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.FindSystem(ctx)
}

func (s *CategoryService) GetUserCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []domain.Category{}, nil
	}
	return s.repo.FindByUser(ctx, userID)
}

// CreateCategory stores a category owned by userID. Ownership fields from the
// caller are ignored.
func (s *CategoryService) CreateCategory(ctx context.Context, userID string, category *domain.Category) error {
	if _, err := uuid.Parse(userID); err != nil {
		return financeErrors.NewValidationError("Missing user ID")
	}
	if err := category.Validate(); err != nil {
		return err
	}
	category.UserID = &userID
	category.IsSystem = false
	return s.repo.Create(ctx, category)
}

func (s *CategoryService) IsCategoryVisible(ctx context.Context, categoryID int64, userID string) (bool, error) {
	if categoryID <= 0 {
		return false, nil
	}
	return s.repo.IsVisibleToUser(ctx, categoryID, userID)
}
