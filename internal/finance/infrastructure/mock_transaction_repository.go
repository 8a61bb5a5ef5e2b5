package infrastructure

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/ExpenseTracker/internal/finance/errors"
)

// MockTransactionRepository is an in-memory TransactionRepository for service
// and handler tests.
type MockTransactionRepository struct {
	mu           sync.Mutex
	Transactions []domain.Transaction
	ShouldFail   bool
	nextID       int
}

var errMockStore = &financeErrors.StoreError{Op: "mock", Err: errors.New("mock store failure")}

func (m *MockTransactionRepository) Create(_ context.Context, transaction *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockStore
	}
	m.nextID++
	transaction.ID = "00000000-0000-0000-0000-" + leftPad(strconv.Itoa(m.nextID), 12)
	transaction.CreatedAt = time.Now()
	m.Transactions = append(m.Transactions, *transaction)
	return nil
}

func (m *MockTransactionRepository) FindByUser(_ context.Context, userID string) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockStore
	}
	filtered := []domain.Transaction{}
	for _, transaction := range m.Transactions {
		if transaction.UserID == userID {
			filtered = append(filtered, transaction)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Date.After(filtered[j].Date.Time)
	})
	return filtered, nil
}

func (m *MockTransactionRepository) FindByID(_ context.Context, transactionID, userID string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockStore
	}
	if i := m.indexOf(transactionID, userID); i >= 0 {
		found := m.Transactions[i]
		return &found, nil
	}
	return nil, financeErrors.ErrNotFound
}

func (m *MockTransactionRepository) Update(_ context.Context, transactionID, userID string, patch domain.TransactionPatch) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockStore
	}
	i := m.indexOf(transactionID, userID)
	if i < 0 {
		return nil, financeErrors.ErrNotFound
	}
	t := &m.Transactions[i]
	if patch.Amount != nil {
		t.Amount = *patch.Amount
	}
	if patch.Description != nil {
		if *patch.Description == "" {
			t.Description = nil
		} else {
			d := *patch.Description
			t.Description = &d
		}
	}
	if patch.Date != nil {
		t.Date = *patch.Date
	}
	updated := *t
	return &updated, nil
}

func (m *MockTransactionRepository) Delete(_ context.Context, transactionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errMockStore
	}
	i := m.indexOf(transactionID, userID)
	if i < 0 {
		return financeErrors.ErrNotFound
	}
	m.Transactions = append(m.Transactions[:i], m.Transactions[i+1:]...)
	return nil
}

func (m *MockTransactionRepository) FindInDateRange(_ context.Context, userID string, startDate, endDate time.Time) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errMockStore
	}
	var filtered []domain.Transaction
	for _, transaction := range m.Transactions {
		if transaction.UserID != userID {
			continue
		}
		if !transaction.Date.Before(startDate) && !transaction.Date.After(endDate) {
			filtered = append(filtered, transaction)
		}
	}
	return filtered, nil
}

func (m *MockTransactionRepository) indexOf(transactionID, userID string) int {
	for i, transaction := range m.Transactions {
		if transaction.ID == transactionID && transaction.UserID == userID {
			return i
		}
	}
	return -1
}

func leftPad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
