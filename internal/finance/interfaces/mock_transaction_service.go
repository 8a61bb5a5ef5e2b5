package interfaces

import (
	"context"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/finance/application"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
)

// MockTransactionService returns Err from every call when it is set.
type MockTransactionService struct {
	Err          error
	Transactions []domain.Transaction
	Summary      map[int]application.TransactionSummary
	Breakdown    *application.Breakdown

	LastUserID    string
	LastID        string
	LastPatch     domain.TransactionPatch
	LastStartDate time.Time
	LastEndDate   time.Time
}

func (m *MockTransactionService) CreateTransaction(_ context.Context, transaction *domain.Transaction) error {
	m.LastUserID = transaction.UserID
	if m.Err != nil {
		return m.Err
	}
	transaction.ID = "5f9c2a10-aaaa-4b7e-8c11-3d2e1f000001"
	m.Transactions = append(m.Transactions, *transaction)
	return nil
}

func (m *MockTransactionService) GetUserTransactions(_ context.Context, userID string) ([]domain.Transaction, error) {
	m.LastUserID = userID
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Transactions, nil
}

func (m *MockTransactionService) UpdateTransaction(_ context.Context, userID, transactionID string, patch domain.TransactionPatch) (*domain.Transaction, error) {
	m.LastUserID, m.LastID, m.LastPatch = userID, transactionID, patch
	if m.Err != nil {
		return nil, m.Err
	}
	updated := domain.Transaction{ID: transactionID, UserID: userID}
	if patch.Amount != nil {
		updated.Amount = *patch.Amount
	}
	return &updated, nil
}

func (m *MockTransactionService) DeleteTransaction(_ context.Context, userID, transactionID string) error {
	m.LastUserID, m.LastID = userID, transactionID
	return m.Err
}

func (m *MockTransactionService) GetTransactionSummary(_ context.Context, userID string, startDate, endDate time.Time) (map[int]application.TransactionSummary, error) {
	m.LastUserID, m.LastStartDate, m.LastEndDate = userID, startDate, endDate
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Summary, nil
}

func (m *MockTransactionService) GetTransactionBreakdown(_ context.Context, userID string) (*application.Breakdown, error) {
	m.LastUserID = userID
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Breakdown, nil
}
