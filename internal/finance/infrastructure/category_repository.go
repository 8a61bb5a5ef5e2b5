package infrastructure

import (
	"context"
	"database/sql"

	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/ExpenseTracker/internal/finance/errors"
)

const categoryColumns = "id, user_id, name, type, description, color, icon, is_system, created_at"

type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) FindSystem(ctx context.Context) ([]domain.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories WHERE is_system = TRUE ORDER BY name ASC"
	return r.list(ctx, "list system categories", query)
}

func (r *CategoryRepository) FindByUser(ctx context.Context, userID string) ([]domain.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories WHERE user_id = $1 ORDER BY name ASC"
	return r.list(ctx, "list user categories", query, userID)
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (user_id, name, type, description, color, icon, is_system)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING id, is_system, created_at`
	err := r.db.QueryRowContext(ctx, query,
		category.UserID, category.Name, category.Type, category.Description, category.Color, category.Icon,
	).Scan(&category.ID, &category.IsSystem, &category.CreatedAt)
	return financeErrors.MapStoreError("create category", err)
}

// IsVisibleToUser reports whether the category is a system category or one
// owned by userID.
func (r *CategoryRepository) IsVisibleToUser(ctx context.Context, categoryID int64, userID string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1 AND (is_system = TRUE OR user_id = $2))"
	err := r.db.QueryRowContext(ctx, query, categoryID, userID).Scan(&exists)
	if err != nil {
		return false, financeErrors.MapStoreError("check category", err)
	}
	return exists, nil
}

func (r *CategoryRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, financeErrors.MapStoreError(op, err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, financeErrors.MapStoreError(op, err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, financeErrors.MapStoreError(op, err)
	}
	return categories, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCategory(row rowScanner) (domain.Category, error) {
	var (
		category                         domain.Category
		userID, description, color, icon sql.NullString
	)
	err := row.Scan(&category.ID, &userID, &category.Name, &category.Type,
		&description, &color, &icon, &category.IsSystem, &category.CreatedAt)
	if err != nil {
		return domain.Category{}, err
	}
	category.UserID = nullableString(userID)
	category.Description = nullableString(description)
	category.Color = nullableString(color)
	category.Icon = nullableString(icon)
	return category, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
