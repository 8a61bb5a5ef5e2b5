package domain

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/finance/errors"
)

const (
	DefaultPaymentMethod = "cash"

	MaxDescriptionLength   = 200
	MaxPaymentMethodLength = 30
)

type TransactionRepository interface {
	Create(ctx context.Context, transaction *Transaction) error
	FindByUser(ctx context.Context, userID string) ([]Transaction, error)
	FindByID(ctx context.Context, transactionID, userID string) (*Transaction, error)
	Update(ctx context.Context, transactionID, userID string, patch TransactionPatch) (*Transaction, error)
	Delete(ctx context.Context, transactionID, userID string) error
	FindInDateRange(ctx context.Context, userID string, startDate, endDate time.Time) ([]Transaction, error)
}

type Transaction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	CategoryID    int64     `json:"category_id"`
	Amount        float64   `json:"amount"`
	Description   *string   `json:"description"`
	Date          Date      `json:"date"`
	Time          *string   `json:"time"` // HH:MM:SS once validated
	PaymentMethod string    `json:"payment_method"`
	Type          string    `json:"type"` // "income" or "expense"
	CreatedAt     time.Time `json:"created_at"`
}

func (t *Transaction) RoundToTwoDecimalPlaces() {
	t.Amount = roundAmount(t.Amount)
}

// Validate normalizes optional fields and checks the transaction before it is
// stored.
func (t *Transaction) Validate() error {
	if t.Amount <= 0 || math.IsInf(t.Amount, 0) || math.IsNaN(t.Amount) {
		return errors.NewValidationError("Amount must be greater than zero")
	}
	if !IsValidTransactionType(t.Type) {
		return errors.NewValidationError("Type must be 'income' or 'expense'")
	}
	if t.CategoryID <= 0 {
		return errors.NewValidationError("Category ID must be provided")
	}
	if t.Date.IsZero() {
		return errors.NewValidationError("Date is required")
	}

	t.Description = trimOptional(t.Description)
	if t.Description != nil && len([]rune(*t.Description)) > MaxDescriptionLength {
		return errors.NewValidationError("Description must be of length less than 200")
	}

	t.Time = trimOptional(t.Time)
	if t.Time != nil {
		normalized, err := normalizeTime(*t.Time)
		if err != nil {
			return errors.NewValidationError("Time must be HH:MM or HH:MM:SS")
		}
		t.Time = &normalized
	}

	t.PaymentMethod = strings.TrimSpace(t.PaymentMethod)
	if t.PaymentMethod == "" {
		t.PaymentMethod = DefaultPaymentMethod
	}
	if len(t.PaymentMethod) > MaxPaymentMethodLength {
		return errors.NewValidationError("Payment method must be at most 30 characters")
	}
	return nil
}

// TransactionPatch is a partial update; nil fields are left untouched.
type TransactionPatch struct {
	Amount      *float64 `json:"amount"`
	Description *string  `json:"description"`
	Date        *Date    `json:"date"`
}

func (p TransactionPatch) IsEmpty() bool {
	return p.Amount == nil && p.Description == nil && p.Date == nil
}

func (p *TransactionPatch) Validate() error {
	if p.IsEmpty() {
		return errors.NewValidationError("Nothing to update")
	}
	if p.Amount != nil {
		rounded := roundAmount(*p.Amount)
		if rounded <= 0 || math.IsInf(rounded, 0) || math.IsNaN(rounded) {
			return errors.NewValidationError("Amount must be greater than zero")
		}
		p.Amount = &rounded
	}
	if p.Description != nil {
		d := strings.TrimSpace(*p.Description)
		if len([]rune(d)) > MaxDescriptionLength {
			return errors.NewValidationError("Description must be of length less than 200")
		}
		p.Description = &d
	}
	if p.Date != nil && p.Date.IsZero() {
		return errors.NewValidationError("Date is required")
	}
	return nil
}

func roundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}

func normalizeTime(s string) (string, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.Format("15:04:05"), nil
		}
	}
	return "", fmt.Errorf("invalid time %q", s)
}
