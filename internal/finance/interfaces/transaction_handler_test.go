package interfaces

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sebuszqo/ExpenseTracker/internal/finance/application"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/domain"
	financeErrors "github.com/sebuszqo/ExpenseTracker/internal/finance/errors"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/infrastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type systemOnlyCategories struct{ MockCategoryService }

func (s *systemOnlyCategories) IsCategoryVisible(_ context.Context, categoryID int64, _ string) (bool, error) {
	for _, c := range s.System {
		if c.ID == categoryID {
			return true, nil
		}
	}
	return false, nil
}

func newRealTransactionService() (*application.TransactionService, *systemOnlyCategories) {
	categories := &systemOnlyCategories{MockCategoryService{System: []domain.Category{
		{ID: 1, Name: "Food & Dining", Type: domain.TypeExpense, IsSystem: true},
		{ID: 9, Name: "Salary", Type: domain.TypeIncome, IsSystem: true},
	}}}
	return application.NewTransactionService(&infrastructure.MockTransactionRepository{}, categories), categories
}

func TestCreateThenList_RoundTrip(t *testing.T) {
	service, categories := newRealTransactionService()
	router := newTestRouter(service, categories, annID)

	rr, body := doRequest(t, router, http.MethodPost, "/api/transactions", map[string]interface{}{
		"amount": 42.50, "type": "expense", "category_id": 1, "date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, true, body["success"])
	created := body["transaction"].(map[string]interface{})
	assert.NotEmpty(t, created["id"])

	rr, body = doRequest(t, router, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := body["transactions"].([]interface{})
	require.Len(t, list, 1)
	row := list[0].(map[string]interface{})
	assert.Equal(t, created["id"], row["id"])
	assert.Equal(t, 42.5, row["amount"])
	assert.Equal(t, "expense", row["type"])
	assert.Equal(t, float64(1), row["category_id"])
	assert.Equal(t, "2024-01-01", row["date"])
	assert.Equal(t, "cash", row["payment_method"])
}

func TestCrossUserAccessReturnsNotFound(t *testing.T) {
	service, categories := newRealTransactionService()
	annRouter := newTestRouter(service, categories, annID)
	bobRouter := newTestRouter(service, categories, bobID)

	_, body := doRequest(t, annRouter, http.MethodPost, "/api/transactions", map[string]interface{}{
		"amount": 10, "type": "expense", "category_id": 1, "date": "2024-01-01",
	})
	id := body["transaction"].(map[string]interface{})["id"].(string)

	rr, body := doRequest(t, bobRouter, http.MethodPut, "/api/transactions/"+id, map[string]interface{}{"amount": 1})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, false, body["success"])

	rr, _ = doRequest(t, bobRouter, http.MethodDelete, "/api/transactions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	_, body = doRequest(t, bobRouter, http.MethodGet, "/api/transactions", nil)
	assert.Empty(t, body["transactions"])

	rr, body = doRequest(t, annRouter, http.MethodPut, "/api/transactions/"+id, map[string]interface{}{"amount": 12.5})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 12.5, body["transaction"].(map[string]interface{})["amount"])

	rr, body = doRequest(t, annRouter, http.MethodDelete, "/api/transactions/"+id, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]interface{}{"success": true}, body)
}

func TestCreateTransaction_Validation(t *testing.T) {
	service, categories := newRealTransactionService()
	router := newTestRouter(service, categories, annID)

	tests := []struct {
		name    string
		body    interface{}
		wantErr string
	}{
		{"malformed json", `{"amount":`, "Invalid request body"},
		{"bad date format", map[string]interface{}{"amount": 1, "type": "expense", "category_id": 1, "date": "01/01/2024"}, "Invalid request body"},
		{"zero amount", map[string]interface{}{"amount": 0, "type": "expense", "category_id": 1, "date": "2024-01-01"}, "Amount must be greater than zero"},
		{"bad type", map[string]interface{}{"amount": 1, "type": "gift", "category_id": 1, "date": "2024-01-01"}, "Type must be 'income' or 'expense'"},
		{"missing date", map[string]interface{}{"amount": 1, "type": "expense", "category_id": 1}, "Date is required"},
		{"unknown category", map[string]interface{}{"amount": 1, "type": "expense", "category_id": 77, "date": "2024-01-01"}, "Invalid category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := doRequest(t, router, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantErr, body["error"])
		})
	}
}

func TestTransactionRoutes_Unauthenticated(t *testing.T) {
	router := newTestRouter(&MockTransactionService{}, &MockCategoryService{}, "")

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/transactions"},
		{http.MethodPost, "/api/transactions"},
		{http.MethodPut, "/api/transactions/5f9c2a10-aaaa-4b7e-8c11-3d2e1f000001"},
		{http.MethodDelete, "/api/transactions/5f9c2a10-aaaa-4b7e-8c11-3d2e1f000001"},
		{http.MethodGet, "/api/transactions/summary"},
		{http.MethodGet, "/api/transactions/breakdown"},
	} {
		rr, body := doRequest(t, router, route.method, route.path, "{}")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, route.path)
		assert.Equal(t, false, body["success"])
	}
}

func TestUpdateTransaction_PassesPatch(t *testing.T) {
	mock := &MockTransactionService{}
	router := newTestRouter(mock, &MockCategoryService{}, annID)

	rr, _ := doRequest(t, router, http.MethodPut, "/api/transactions/abc", map[string]interface{}{
		"amount": 5.5, "description": "coffee", "date": "2024-03-01",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, annID, mock.LastUserID)
	assert.Equal(t, "abc", mock.LastID)
	require.NotNil(t, mock.LastPatch.Amount)
	assert.Equal(t, 5.5, *mock.LastPatch.Amount)
	assert.Equal(t, "coffee", *mock.LastPatch.Description)
	assert.Equal(t, "2024-03-01", mock.LastPatch.Date.String())
}

func TestTransactionHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"validation", financeErrors.NewValidationError("Nothing to update"), http.StatusBadRequest, "Nothing to update"},
		{"not found", financeErrors.ErrNotFound, http.StatusNotFound, "Transaction not found"},
		{"store", &financeErrors.StoreError{Op: "update", Err: errors.New("pq: connection refused")}, http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&MockTransactionService{Err: tt.err}, &MockCategoryService{}, annID)
			rr, body := doRequest(t, router, http.MethodPut, "/api/transactions/abc", map[string]interface{}{"amount": 1})
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestGetTransactionSummary(t *testing.T) {
	mock := &MockTransactionService{Summary: map[int]application.TransactionSummary{
		2024: {Year: 2024, IncomeTotal: 100, Months: map[string]application.MonthSummary{}},
	}}
	router := newTestRouter(mock, &MockCategoryService{}, annID)

	rr, body := doRequest(t, router, http.MethodGet, "/api/transactions/summary?start_date=2024-01-01&end_date=2024-06-30", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), mock.LastStartDate)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), mock.LastEndDate)
	data := body["data"].(map[string]interface{})
	assert.Contains(t, data, "2024")

	rr, body = doRequest(t, router, http.MethodGet, "/api/transactions/summary?start_date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid start date format", body["error"])

	rr, _ = doRequest(t, router, http.MethodGet, "/api/transactions/summary?start_date=2024-06-01&end_date=2024-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetTransactionBreakdown(t *testing.T) {
	mock := &MockTransactionService{Breakdown: &application.Breakdown{
		TotalIncome: 100, TotalExpenses: 40, Net: 60,
		Categories:      []application.CategoryBreakdown{{CategoryID: 1, Name: "Food & Dining", Total: 40, Count: 2, Percentage: 100}},
		HighestCategory: &application.CategoryBreakdown{CategoryID: 1, Name: "Food & Dining", Total: 40, Count: 2, Percentage: 100},
	}}
	router := newTestRouter(mock, &MockCategoryService{}, annID)

	rr, body := doRequest(t, router, http.MethodGet, "/api/transactions/breakdown", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, 60.0, data["net"])
	assert.Equal(t, "Food & Dining", data["highest_category"].(map[string]interface{})["name"])
}
