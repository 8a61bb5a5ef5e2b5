package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/ExpenseTracker/internal/finance/errors"
)

const transactionColumns = `id, user_id, category_id, amount, description, date, "time"::text, payment_method, type, created_at`

const transactionOrder = ` ORDER BY date DESC, "time" DESC NULLS LAST, created_at DESC`

// TransactionRepository scopes every statement by user_id.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, category_id, amount, description, date, "time", payment_method, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		transaction.UserID, transaction.CategoryID, transaction.Amount, transaction.Description,
		transaction.Date, transaction.Time, transaction.PaymentMethod, transaction.Type,
	).Scan(&transaction.ID, &transaction.CreatedAt)
	return financeErrors.MapStoreError("create transaction", err)
}

func (r *TransactionRepository) FindByUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE user_id = $1" + transactionOrder
	return r.list(ctx, "list transactions", query, userID)
}

func (r *TransactionRepository) FindByID(ctx context.Context, transactionID, userID string) (*domain.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE id = $1 AND user_id = $2"
	transaction, err := scanTransaction(r.db.QueryRowContext(ctx, query, transactionID, userID))
	if err != nil {
		return nil, financeErrors.MapStoreError("find transaction", err)
	}
	return &transaction, nil
}

// Update applies the non-nil fields of patch to the row owned by userID.
func (r *TransactionRepository) Update(ctx context.Context, transactionID, userID string, patch domain.TransactionPatch) (*domain.Transaction, error) {
	var (
		sets []string
		args []interface{}
	)
	if patch.Amount != nil {
		args = append(args, *patch.Amount)
		sets = append(sets, fmt.Sprintf("amount = $%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		sets = append(sets, fmt.Sprintf("description = NULLIF($%d, '')", len(args)))
	}
	if patch.Date != nil {
		args = append(args, *patch.Date)
		sets = append(sets, fmt.Sprintf("date = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil, financeErrors.NewValidationError("Nothing to update")
	}

	args = append(args, transactionID, userID)
	query := fmt.Sprintf(
		"UPDATE transactions SET %s WHERE id = $%d AND user_id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args)-1, len(args), transactionColumns,
	)

	transaction, err := scanTransaction(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, financeErrors.MapStoreError("update transaction", err)
	}
	return &transaction, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, transactionID, userID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = $1 AND user_id = $2", transactionID, userID)
	if err != nil {
		return financeErrors.MapStoreError("delete transaction", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return financeErrors.MapStoreError("delete transaction", err)
	}
	if affected == 0 {
		return financeErrors.ErrNotFound
	}
	return nil
}

// FindInDateRange returns the user's transactions dated within [startDate, endDate].
func (r *TransactionRepository) FindInDateRange(ctx context.Context, userID string, startDate, endDate time.Time) ([]domain.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE user_id = $1 AND date >= $2 AND date <= $3" + transactionOrder
	return r.list(ctx, "list transactions in range", query, userID,
		startDate.Format(domain.DateLayout), endDate.Format(domain.DateLayout))
}

func (r *TransactionRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, financeErrors.MapStoreError(op, err)
	}
	defer rows.Close()

	transactions := []domain.Transaction{}
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, financeErrors.MapStoreError(op, err)
		}
		transactions = append(transactions, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, financeErrors.MapStoreError(op, err)
	}
	return transactions, nil
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		transaction      domain.Transaction
		description, tod sql.NullString
	)
	err := row.Scan(&transaction.ID, &transaction.UserID, &transaction.CategoryID, &transaction.Amount,
		&description, &transaction.Date, &tod, &transaction.PaymentMethod, &transaction.Type, &transaction.CreatedAt)
	if err != nil {
		return domain.Transaction{}, err
	}
	transaction.Description = nullableString(description)
	transaction.Time = nullableString(tod)
	return transaction, nil
}
