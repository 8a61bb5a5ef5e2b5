package application

import (
	"context"
	"errors"

	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
)

type MockCategoryService struct {
	System     []domain.Category
	Own        map[string][]domain.Category
	ShouldFail bool
}

var errCategoriesUnavailable = errors.New("categories unavailable")

func (m *MockCategoryService) GetSystemCategories(context.Context) ([]domain.Category, error) {
	if m.ShouldFail {
		return nil, errCategoriesUnavailable
	}
	return m.System, nil
}

func (m *MockCategoryService) GetUserCategories(_ context.Context, userID string) ([]domain.Category, error) {
	if m.ShouldFail {
		return nil, errCategoriesUnavailable
	}
	return m.Own[userID], nil
}

func (m *MockCategoryService) IsCategoryVisible(_ context.Context, categoryID int64, userID string) (bool, error) {
	if m.ShouldFail {
		return false, errCategoriesUnavailable
	}
	for _, c := range m.System {
		if c.ID == categoryID {
			return true, nil
		}
	}
	for _, c := range m.Own[userID] {
		if c.ID == categoryID {
			return true, nil
		}
	}
	return false, nil
}
