package domain

import (
	"context"
	"strings"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/finance/errors"
)

const (
	TypeIncome  = "income"
	TypeExpense = "expense"

	MaxCategoryNameLength = 50
)

// Category is either a system category (UserID nil, IsSystem true) visible to
// everyone or a category owned by one user.
type Category struct {
	ID          int64     `json:"id"`
	UserID      *string   `json:"user_id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"` // "income" or "expense"
	Description *string   `json:"description"`
	Color       *string   `json:"color"`
	Icon        *string   `json:"icon"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
}

type CategoryRepository interface {
	FindSystem(ctx context.Context) ([]Category, error)
	FindByUser(ctx context.Context, userID string) ([]Category, error)
	Create(ctx context.Context, category *Category) error
	IsVisibleToUser(ctx context.Context, categoryID int64, userID string) (bool, error)
}

func IsValidTransactionType(t string) bool {
	return t == TypeIncome || t == TypeExpense
}

func (c *Category) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" || c.Type == "" {
		return errors.NewValidationError("Missing name or type")
	}
	if !IsValidTransactionType(c.Type) {
		return errors.NewValidationError("Type must be 'income' or 'expense'")
	}
	if len([]rune(c.Name)) > MaxCategoryNameLength {
		return errors.NewValidationError("Name must be at most 50 characters")
	}
	c.Description = trimOptional(c.Description)
	c.Color = trimOptional(c.Color)
	c.Icon = trimOptional(c.Icon)
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
