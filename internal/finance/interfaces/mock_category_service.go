package interfaces

import (
	"context"

	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
)

type MockCategoryService struct {
	Err        error
	System     []domain.Category
	Own        []domain.Category
	LastUserID string
}

func (m *MockCategoryService) GetSystemCategories(context.Context) ([]domain.Category, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.System, nil
}

func (m *MockCategoryService) GetUserCategories(_ context.Context, userID string) ([]domain.Category, error) {
	m.LastUserID = userID
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Own, nil
}

func (m *MockCategoryService) CreateCategory(_ context.Context, userID string, category *domain.Category) error {
	m.LastUserID = userID
	if m.Err != nil {
		return m.Err
	}
	if err := category.Validate(); err != nil {
		return err
	}
	category.ID = int64(len(m.Own) + 100)
	category.UserID = &userID
	m.Own = append(m.Own, *category)
	return nil
}
